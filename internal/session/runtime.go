package session

import "context"

// Runtime abstracts the model runtime owned by the session manager.
// Implementations hold at most one loaded model; Load replaces it.
type Runtime interface {
	// LoadedPath returns the path of the currently loaded model, or "".
	LoadedPath() string
	// Load loads the model at modelPath, replacing any previous model.
	// projectionPath optionally names a multimodal companion file.
	Load(ctx context.Context, modelPath, projectionPath string) error
	// Generate streams tokens for prompt. onToken is invoked per token; a
	// non-nil return stops generation promptly. Implementations must also
	// return when ctx is canceled.
	Generate(ctx context.Context, prompt string, cfg Settings, onToken func(string) error) (Result, error)
	// Embeddings returns one vector per input string.
	Embeddings(ctx context.Context, inputs []string) ([][]float32, error)
	// Close releases the loaded model, if any.
	Close() error
}

// Result summarizes a finished generation.
type Result struct {
	Content      string
	FinishReason string
}
