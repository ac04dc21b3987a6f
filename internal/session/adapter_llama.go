//go:build llama

package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaRuntime is the in-process llama.cpp backend. One model is resident at
// a time; Load frees the previous one before loading the next.
type llamaRuntime struct {
	ctxSize int
	threads int

	mu    sync.Mutex
	model *llama.LLama
	path  string
}

// NewRuntime returns the llama.cpp-backed Runtime.
func NewRuntime(ctxSize, threads int) Runtime {
	return &llamaRuntime{ctxSize: ctxSize, threads: threads}
}

func (r *llamaRuntime) LoadedPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

func (r *llamaRuntime) Load(ctx context.Context, modelPath, projectionPath string) error {
	if strings.TrimSpace(modelPath) == "" {
		return errors.New("model path is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := llama.New(modelPath,
		llama.SetContext(r.ctxSize),
		llama.EnableEmbeddings,
	)
	if err != nil {
		return err
	}
	// projectionPath is recorded with the session only; this backend has no
	// separate projection hook.
	r.mu.Lock()
	old := r.model
	r.model = m
	r.path = modelPath
	r.mu.Unlock()
	if old != nil {
		old.Free()
	}
	return nil
}

func (r *llamaRuntime) Generate(ctx context.Context, prompt string, cfg Settings, onToken func(string) error) (Result, error) {
	r.mu.Lock()
	m := r.model
	r.mu.Unlock()
	if m == nil {
		return Result{}, notLoadedError{}
	}

	// Bridge token streaming to onToken and respect cancellation.
	m.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		return onToken(tok) == nil
	})
	text, err := m.Predict(prompt, predictOptions(cfg, r.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}
	reason := "stop"
	if ctx.Err() != nil {
		reason = "cancel"
	}
	return Result{Content: text, FinishReason: reason}, nil
}

func (r *llamaRuntime) Embeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	r.mu.Lock()
	m := r.model
	r.mu.Unlock()
	if m == nil {
		return nil, notLoadedError{}
	}
	out := make([][]float32, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := m.Embeddings(in)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (r *llamaRuntime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model != nil {
		r.model.Free()
		r.model = nil
		r.path = ""
	}
	return nil
}

func zf(v float64, def float32) float32 {
	if v > 0 {
		return float32(v)
	}
	return def
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions maps our settings onto go-llama.cpp options. Fields the
// backend has no hook for (grammar, min_p, presence/frequency penalties) are
// dropped here.
func predictOptions(cfg Settings, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(zn(cfg.MaxTokens, 512)),
		llama.SetThreads(zn(threads, 4)),
		llama.SetTopP(zf(cfg.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(cfg.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(cfg.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(cfg.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if cfg.Seed != 0 {
		po = append(po, llama.SetSeed(cfg.Seed))
	}
	if len(cfg.Stop) > 0 {
		po = append(po, llama.SetStopWords(cfg.Stop...))
	}
	return po
}
