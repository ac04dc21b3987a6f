package httpapi

import (
	"net/http"
	"strings"

	"peerd/pkg/types"
)

func (a *api) handleTags(w http.ResponseWriter, _ *http.Request) {
	models := a.Models.List()
	if models == nil {
		models = []types.Model{}
	}
	writeJSON(w, http.StatusOK, types.TagsResponse{Models: models})
}

func (a *api) handlePS(w http.ResponseWriter, _ *http.Request) {
	resp := struct {
		Model *types.LoadedModel `json:"model"`
	}{}
	if active := a.Sessions.Active(); active != nil {
		resp.Model = &types.LoadedModel{
			Name:     active.DisplayName,
			Path:     active.Path,
			LoadedAt: active.LoadedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) handlePull(w http.ResponseWriter, r *http.Request) {
	var req types.PullRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.Model) == "" {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	st, err := a.Puller.Start(req.URL, req.Model)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *api) handlePullStatus(w http.ResponseWriter, _ *http.Request) {
	jobs := a.Puller.Status()
	if jobs == nil {
		jobs = []types.PullStatus{}
	}
	writeJSON(w, http.StatusOK, struct {
		Pulls []types.PullStatus `json:"pulls"`
	}{Pulls: jobs})
}

func (a *api) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req types.DeleteRequest
	if !readJSON(w, r, &req) {
		return
	}
	target := req.Name
	if target == "" {
		target = req.Path
	}
	if strings.TrimSpace(target) == "" {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	if err := a.Models.Delete(target); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *api) handleCopy(w http.ResponseWriter, r *http.Request) {
	var req types.CopyRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Destination) == "" {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	if err := a.Models.Copy(req.Source, req.Destination); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "copied"})
}

func (a *api) handleShow(w http.ResponseWriter, r *http.Request) {
	var req types.ShowRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	mdl, ok := a.Models.Resolve(req.Name)
	if !ok {
		writeError(w, http.StatusNotFound, "model_not_found")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Model    types.Model `json:"model"`
		Settings any         `json:"settings"`
	}{Model: mdl, Settings: a.Sessions.ResolveSettings(nil)})
}
