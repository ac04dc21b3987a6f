package types

import (
	"encoding/json"
	"time"
)

// GenerateRequest is the payload for POST /api/generate.
type GenerateRequest struct {
	// Optional model identifier. If empty, the currently loaded model is used.
	Model string `json:"model,omitempty"`
	// Prompt text to complete.
	Prompt string `json:"prompt"`
	// Optional system prompt prepended to the prompt.
	System string `json:"system,omitempty"`
	// Stream defaults to true when omitted.
	Stream *bool `json:"stream,omitempty"`
	// Open-ended sampling options; unrecognized fields are ignored.
	Options map[string]any `json:"options,omitempty"`
}

// ChatRequest is the payload for POST /api/chat.
type ChatRequest struct {
	Model    string         `json:"model,omitempty"`
	Messages []ChatMessage  `json:"messages"`
	Stream   *bool          `json:"stream,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// GenerateChunk is one streamed unit of a generation response. Done is false
// for token chunks and true for exactly one terminal chunk.
type GenerateChunk struct {
	Model     string       `json:"model"`
	CreatedAt time.Time    `json:"created_at"`
	Response  string       `json:"response,omitempty"`
	Message   *ChatMessage `json:"message,omitempty"`
	Done      bool         `json:"done"`
	// Set on the terminal chunk only.
	TotalDuration int64  `json:"total_duration,omitempty"`
	Error         string `json:"error,omitempty"`
}

// EmbeddingsRequest is the payload for POST /api/embeddings.
// Input accepts a single string or an array of strings.
type EmbeddingsRequest struct {
	Model string       `json:"model,omitempty"`
	Input StringOrList `json:"input"`
}

// EmbeddingsResponse carries one vector per input.
type EmbeddingsResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// StringOrList unmarshals either a JSON string or an array of strings.
type StringOrList []string

func (s *StringOrList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = StringOrList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = StringOrList(many)
	return nil
}

// PullRequest starts a model download.
type PullRequest struct {
	URL   string `json:"url"`
	Model string `json:"model"`
}

// DeleteRequest removes a stored model by name or path.
type DeleteRequest struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
}

// CopyRequest duplicates a stored model file.
type CopyRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// ShowRequest queries model metadata.
type ShowRequest struct {
	Name string `json:"name"`
}

// TagsResponse wraps the stored-model listing for GET /api/tags.
type TagsResponse struct {
	Models []Model `json:"models"`
}

// LoadedModel describes the currently loaded model for GET /api/ps.
type LoadedModel struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	LoadedAt time.Time `json:"loaded_at"`
}

// AnswerRequest routes a WebRTC answer back to the application.
type AnswerRequest struct {
	SDP    string `json:"sdp"`
	PeerID string `json:"peerId,omitempty"`
}

// OfferResponse is the pending offer returned by GET /offer.
type OfferResponse struct {
	SDP    string `json:"sdp"`
	PeerID string `json:"peerId"`
}

// SignalMessage is one newline-delimited signaling frame.
type SignalMessage struct {
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
	PeerID string          `json:"peerId,omitempty"`
}

// ErrorResponse is the fixed-shape error body: {"error":"snake_case_code"}.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the aggregate health report for GET /api/status.
type StatusResponse struct {
	UptimeSeconds  int64        `json:"uptime_seconds"`
	ServerTimeUnix int64        `json:"server_time_unix"`
	StoredModels   int          `json:"stored_models"`
	Model          *LoadedModel `json:"model,omitempty"`
	Retrieval      RagStatus    `json:"retrieval"`
	PendingOffer   bool         `json:"pending_offer"`
	Thinking       bool         `json:"thinking"`
}

// RagStatus summarizes the retrieval index.
type RagStatus struct {
	Enabled   bool `json:"enabled"`
	Documents int  `json:"documents"`
	Chunks    int  `json:"chunks"`
}

// PullStatus reports progress of an in-flight or finished download.
type PullStatus struct {
	Model    string `json:"model"`
	URL      string `json:"url"`
	Received int64  `json:"received"`
	Total    int64  `json:"total"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}
