package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"peerd/internal/session"
	"peerd/pkg/types"
)

func (a *api) handleListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := a.Chats.ListChats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if chats == nil {
		chats = []types.Chat{}
	}
	writeJSON(w, http.StatusOK, struct {
		Chats []types.Chat `json:"chats"`
	}{Chats: chats})
}

func (a *api) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		Model string `json:"model"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	chat, err := a.Chats.CreateChat(r.Context(), req.Title, req.Model)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

func (a *api) handleGetChat(w http.ResponseWriter, r *http.Request) {
	chat, msgs, err := a.Chats.GetChat(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		respondError(w, err)
		return
	}
	if msgs == nil {
		msgs = []types.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, struct {
		types.Chat
		Messages []types.ChatMessage `json:"messages"`
	}{Chat: chat, Messages: msgs})
}

func (a *api) handleUpdateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title *string `json:"title"`
		Model *string `json:"model"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if req.Title == nil && req.Model == nil {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	chat, err := a.Chats.UpdateChat(r.Context(), chi.URLParam(r, "chatID"), req.Title, req.Model)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (a *api) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := a.Chats.DeleteChat(r.Context(), chi.URLParam(r, "chatID")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	msg, err := a.Chats.AddMessage(r.Context(), chi.URLParam(r, "chatID"), req.Role, req.Content)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (a *api) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	err := a.Chats.DeleteMessage(r.Context(), chi.URLParam(r, "chatID"), chi.URLParam(r, "messageID"))
	if err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGenerateTitle asks the model for a short title summarizing the chat
// and stores it.
func (a *api) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "chatID")
	chat, msgs, err := a.Chats.GetChat(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	if len(msgs) == 0 {
		writeError(w, http.StatusBadRequest, "missing_messages")
		return
	}

	var b strings.Builder
	b.WriteString("Write a title of at most five words for this conversation. Reply with the title only.\n\n")
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	out, err := a.Sessions.Generate(r.Context(), session.Job{Model: chat.Model, Prompt: b.String()}, nil)
	if err != nil {
		respondError(w, err)
		return
	}
	title := strings.Trim(strings.TrimSpace(out.Content), `"`)
	if title == "" {
		title = chat.Title
	}
	updated, err := a.Chats.UpdateChat(r.Context(), id, &title, nil)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *api) handleSetChatModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	if _, ok := a.Models.Resolve(req.Model); !ok {
		writeError(w, http.StatusNotFound, "model_not_found")
		return
	}
	chat, err := a.Chats.UpdateChat(r.Context(), chi.URLParam(r, "chatID"), nil, &req.Model)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}
