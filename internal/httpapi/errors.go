package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"peerd/internal/backends"
	"peerd/internal/chatstore"
	"peerd/internal/rag"
	"peerd/internal/registry"
	"peerd/internal/session"
	"peerd/pkg/types"
)

// writeJSON marshals v and writes it with an explicit Content-Length so the
// connection layer does not need chunked framing for unary responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// writeError writes the fixed error body shape {"error":"snake_case_code"}.
func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, types.ErrorResponse{Error: code})
}

// readJSON decodes the request body into dst, distinguishing an empty body
// from malformed JSON. It writes the error response itself and reports
// whether the caller may proceed.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, "empty_body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

// errorStatus maps domain errors to an HTTP status and stable error code.
func errorStatus(err error) (int, string) {
	var nf chatstore.NotFoundError
	switch {
	case registry.IsModelNotFound(err):
		return http.StatusNotFound, "model_not_found"
	case registry.IsInvalidDestination(err):
		return http.StatusBadRequest, "invalid_destination"
	case registry.IsDestinationExists(err):
		return http.StatusConflict, "destination_exists"
	case registry.IsPullInvalid(err):
		return http.StatusBadRequest, "invalid_pull_request"
	case session.IsNotLoaded(err):
		return http.StatusServiceUnavailable, "model_not_loaded"
	case session.IsBusy(err):
		return http.StatusServiceUnavailable, "server_busy"
	case session.IsRuntimeUnavailable(err):
		return http.StatusServiceUnavailable, "model_not_loaded"
	case errors.As(err, &nf):
		if nf.Entity == "message" {
			return http.StatusNotFound, "message_not_found"
		}
		return http.StatusNotFound, "chat_not_found"
	case rag.IsDisabled(err):
		return http.StatusConflict, "retrieval_disabled"
	case backends.IsUnknownBackend(err):
		return http.StatusNotFound, "not_found"
	case backends.IsProviderDisabled(err):
		return http.StatusConflict, "provider_disabled"
	case backends.IsMissingAPIKey(err):
		return http.StatusUnprocessableEntity, "missing_api_key"
	case backends.IsDeviceRequirements(err):
		return http.StatusPreconditionRequired, "device_requirements_unmet"
	case backends.IsUnsupportedPlatform(err):
		return http.StatusNotImplemented, "unsupported_platform"
	}
	return http.StatusInternalServerError, "internal_error"
}

// respondError classifies err and writes the matching error body.
func respondError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	writeError(w, status, code)
}
