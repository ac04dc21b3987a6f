package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"peerd/internal/rag"
)

// handleIngest accepts either inline content or a local file path to add to
// the retrieval index.
func (a *api) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Content string `json:"content"`
		Path    string `json:"path"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	text := req.Content
	name := req.Name
	if req.Path != "" {
		b, err := os.ReadFile(req.Path)
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing_field")
			return
		}
		text = string(b)
		if name == "" {
			name = filepath.Base(req.Path)
		}
	}
	if strings.TrimSpace(text) == "" || strings.TrimSpace(name) == "" {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	chunks, err := a.Retrieval.Ingest(r.Context(), name, text)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Name   string `json:"name"`
		Chunks int    `json:"chunks"`
	}{Name: name, Chunks: chunks})
}

func (a *api) handleRagStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.Retrieval.Status())
}

func (a *api) handleRagEnable(w http.ResponseWriter, r *http.Request) {
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
	a.Retrieval.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, a.Retrieval.Status())
}

func (a *api) handleRagSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "invalid_query")
		return
	}
	k, _ := strconv.Atoi(r.URL.Query().Get("k"))
	hits, err := a.Retrieval.Search(r.Context(), query, k)
	if err != nil {
		respondError(w, err)
		return
	}
	if hits == nil {
		hits = []rag.Hit{}
	}
	writeJSON(w, http.StatusOK, struct {
		Hits []rag.Hit `json:"hits"`
	}{Hits: hits})
}

func (a *api) handleRagDelete(w http.ResponseWriter, r *http.Request) {
	if !a.Retrieval.DeleteDocument(chi.URLParam(r, "name")) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
