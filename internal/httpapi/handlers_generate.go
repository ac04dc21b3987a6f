package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"peerd/internal/session"
	"peerd/pkg/types"
)

func (a *api) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "missing_prompt")
		return
	}
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}
	job := session.Job{Model: req.Model, Prompt: prompt, Options: req.Options}
	a.completion(w, r, job, false, wantStream(req.Stream))
}

func (a *api) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !readJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "missing_messages")
		return
	}
	job := session.Job{Model: req.Model, Prompt: renderChatPrompt(req.Messages), Options: req.Options}
	a.completion(w, r, job, true, wantStream(req.Stream))
}

func (a *api) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req types.EmbeddingsRequest
	if !readJSON(w, r, &req) {
		return
	}
	if len(req.Input) == 0 {
		writeError(w, http.StatusBadRequest, "missing_field")
		return
	}
	vecs, err := a.Sessions.Embeddings(r.Context(), req.Model, []string(req.Input))
	if err != nil {
		respondError(w, err)
		return
	}
	active := a.Sessions.Active()
	name := req.Model
	if active != nil {
		name = active.DisplayName
	}
	writeJSON(w, http.StatusOK, types.EmbeddingsResponse{Model: name, Embeddings: vecs})
}

// wantStream: streaming is the default, an explicit false turns it off.
func wantStream(s *bool) bool { return s == nil || *s }

// completion runs one generation job and responds either as a stream of
// newline-delimited chunks or as a single terminal chunk.
func (a *api) completion(w http.ResponseWriter, r *http.Request, job session.Job, chat, stream bool) {
	active, err := a.Sessions.EnsureLoaded(r.Context(), job.Model)
	if err != nil {
		respondError(w, err)
		return
	}
	if !stream {
		a.bufferedCompletion(w, r, job, chat, active.DisplayName)
		return
	}
	a.streamCompletion(w, r, job, chat, active.DisplayName)
}

// streamCompletion sends headers before the first token so the client can
// start reading immediately, then one chunk line per token and exactly one
// terminal chunk with done set. Errors after the headers travel in band.
func (a *api) streamCompletion(w http.ResponseWriter, r *http.Request, job session.Job, chat bool, model string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	start := time.Now()
	onToken := func(tok string) error {
		if err := writeChunk(w, types.GenerateChunk{
			Model:     model,
			CreatedAt: time.Now().UTC(),
			Response:  tok,
		}); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	out, err := a.Sessions.Generate(r.Context(), job, onToken)
	final := types.GenerateChunk{
		Model:         model,
		CreatedAt:     time.Now().UTC(),
		Done:          true,
		TotalDuration: time.Since(start).Nanoseconds(),
	}
	if err != nil {
		a.Log.Error().Err(err).Str("model", model).Msg("generation failed")
		final.Error = streamErrorCode(err)
	} else if chat {
		final.Message = &types.ChatMessage{Role: "assistant", Content: out.Content}
	} else {
		final.Response = out.Content
	}
	// Terminal chunk is best effort: a write failure here means the peer
	// is gone and the connection layer tears the socket down.
	_ = writeChunk(w, final)
	if flusher != nil {
		flusher.Flush()
	}
}

func (a *api) bufferedCompletion(w http.ResponseWriter, r *http.Request, job session.Job, chat bool, model string) {
	start := time.Now()
	out, err := a.Sessions.Generate(r.Context(), job, nil)
	if err != nil {
		respondError(w, err)
		return
	}
	chunk := types.GenerateChunk{
		Model:         model,
		CreatedAt:     time.Now().UTC(),
		Done:          true,
		TotalDuration: time.Since(start).Nanoseconds(),
	}
	if chat {
		chunk.Message = &types.ChatMessage{Role: "assistant", Content: out.Content}
	} else {
		chunk.Response = out.Content
	}
	writeJSON(w, http.StatusOK, chunk)
}

func writeChunk(w http.ResponseWriter, c types.GenerateChunk) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// streamErrorCode reuses the unary error vocabulary for in-band errors.
func streamErrorCode(err error) string {
	if _, code := errorStatus(err); code != "internal_error" {
		return code
	}
	return "generation_failed"
}

// renderChatPrompt flattens a message history into a single prompt with an
// assistant turn left open.
func renderChatPrompt(msgs []types.ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		role := m.Role
		if role == "" {
			role = "user"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("assistant: ")
	return b.String()
}
