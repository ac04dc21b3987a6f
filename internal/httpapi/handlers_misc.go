package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"peerd/pkg/types"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>peerd</title></head>
<body>
<h1>peerd</h1>
<p>Local model daemon with WebRTC signaling. API under <code>/api</code>.</p>
</body>
</html>
`

func (a *api) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(indexPage)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(indexPage))
}

func (a *api) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports readiness to serve inference: a model must be
// resident. Liveness stays on /healthz.
func (a *api) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if a.Sessions.Active() == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no model loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *api) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := types.StatusResponse{
		UptimeSeconds:  int64(time.Since(a.StartedAt).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
		StoredModels:   len(a.Models.List()),
		Retrieval:      a.Retrieval.Status(),
		Thinking:       a.Sessions.Thinking(),
	}
	if active := a.Sessions.Active(); active != nil {
		resp.Model = &types.LoadedModel{
			Name:     active.DisplayName,
			Path:     active.Path,
			LoadedAt: active.LoadedAt,
		}
	}
	_, resp.PendingOffer = a.Signal.PendingOffer()
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handleThinking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	a.Sessions.SetThinking(*req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"thinking": *req.Enabled})
}

func (a *api) handleOffer(w http.ResponseWriter, _ *http.Request) {
	offer, ok := a.Signal.PendingOffer()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "offer_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, types.OfferResponse{SDP: offer.SDP, PeerID: offer.PeerID})
}

func (a *api) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req types.AnswerRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SDP) == "" {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	if err := a.Signal.DeliverAnswer(req.SDP, req.PeerID); err != nil {
		writeError(w, http.StatusServiceUnavailable, "answer_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
