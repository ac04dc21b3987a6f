//go:build !llama

package session

// This file provides a no-CGO stub runtime compiled when the 'llama' build
// tag is NOT set, keeping default builds and CI CGO-free. The stub refuses to
// load or generate rather than mocking behavior.

import "context"

type stubRuntime struct{}

// NewRuntime returns the stub runtime.
func NewRuntime(ctxSize, threads int) Runtime { return stubRuntime{} }

func (stubRuntime) LoadedPath() string { return "" }

func (stubRuntime) Load(ctx context.Context, modelPath, projectionPath string) error {
	return ErrRuntimeUnavailable("llama support not built (missing 'llama' build tag)")
}

func (stubRuntime) Generate(ctx context.Context, prompt string, cfg Settings, onToken func(string) error) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}
	return Result{}, ErrRuntimeUnavailable("llama support not built (missing 'llama' build tag)")
}

func (stubRuntime) Embeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	return nil, ErrRuntimeUnavailable("llama support not built (missing 'llama' build tag)")
}

func (stubRuntime) Close() error { return nil }
