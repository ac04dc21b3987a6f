package types

import "time"

// Model represents a model file present in local storage.
type Model struct {
	// Stable name, the file name including extension.
	Name string `json:"name"`
	// Absolute path to the model file on disk.
	Path string `json:"path"`
	// File size in bytes.
	SizeBytes int64 `json:"size"`
	// Last modification time of the file.
	ModifiedAt time.Time `json:"modified_at"`
	// Quantization variant parsed from the file name, if recognizable.
	Quant string `json:"quant,omitempty"`
	// Path to a companion multimodal projection file, if one exists
	// alongside the model.
	Projection string `json:"projection,omitempty"`
}

// Chat is a stored conversation.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is one message within a chat.
type ChatMessage struct {
	ID        string    `json:"id,omitempty"`
	ChatID    string    `json:"chat_id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
