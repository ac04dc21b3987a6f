package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"peerd/internal/backends"
)

func (a *api) handleListBackends(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Selected string             `json:"selected"`
		Backends []backends.Backend `json:"backends"`
	}{Selected: a.Backends.Selected(), Backends: a.Backends.List()})
}

func (a *api) handleSelectBackend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	if err := a.Backends.Select(req.Name); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": a.Backends.Selected()})
}

func (a *api) handleAppleFoundation(w http.ResponseWriter, r *http.Request) {
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
	if err := a.Backends.EnableApple(*req.Enabled); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

func (a *api) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	name := "remote/" + chi.URLParam(r, "provider")
	for _, b := range a.Backends.List() {
		if b.Name == name {
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found")
}

func (a *api) handleProviderEnable(w http.ResponseWriter, r *http.Request) {
	a.setProviderEnabled(w, r, true)
}

func (a *api) handleProviderDisable(w http.ResponseWriter, r *http.Request) {
	a.setProviderEnabled(w, r, false)
}

func (a *api) setProviderEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	provider := chi.URLParam(r, "provider")
	if err := a.Backends.EnableProvider(provider, enabled); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (a *api) handleProviderKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	if err := a.Backends.SetProviderKey(chi.URLParam(r, "provider"), req.Key); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
