package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"peerd/internal/registry"
)

// fakeRuntime emits a fixed token sequence and records load calls.
type fakeRuntime struct {
	mu      sync.Mutex
	path    string
	loads   int
	tokens  []string
	loadErr error
	genErr  error
}

func (f *fakeRuntime) LoadedPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

func (f *fakeRuntime) Load(ctx context.Context, modelPath, projectionPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loads++
	f.path = modelPath
	return nil
}

func (f *fakeRuntime) Generate(ctx context.Context, prompt string, cfg Settings, onToken func(string) error) (Result, error) {
	if f.genErr != nil {
		return Result{}, f.genErr
	}
	toks := f.tokens
	if len(toks) == 0 {
		toks = []string{"hello", " world"}
	}
	var b strings.Builder
	for _, tok := range toks {
		if err := ctx.Err(); err != nil {
			return Result{Content: b.String(), FinishReason: "cancel"}, nil
		}
		if err := onToken(tok); err != nil {
			return Result{Content: b.String(), FinishReason: "cancel"}, nil
		}
		b.WriteString(tok)
	}
	return Result{Content: b.String(), FinishReason: "stop"}, nil
}

func (f *fakeRuntime) Embeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = []float32{float32(len(in)), 1}
	}
	return out, nil
}

func (f *fakeRuntime) Close() error { return nil }

func testRegistry(t *testing.T, names ...string) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("gguf"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	reg, err := registry.New(dir)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func newTestManager(t *testing.T, rt Runtime, names ...string) *Manager {
	t.Helper()
	return NewManager(rt, testRegistry(t, names...), zerolog.Nop(), ManagerConfig{})
}

func TestEnsureLoadedIdempotent(t *testing.T) {
	rt := &fakeRuntime{}
	m := newTestManager(t, rt, "a.gguf")
	first, err := m.EnsureLoaded(context.Background(), "a.gguf")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if m.Loads() != 1 {
		t.Fatalf("loads=%d", m.Loads())
	}
	second, err := m.EnsureLoaded(context.Background(), "a.gguf")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if m.Loads() != 1 {
		t.Fatalf("second ensure performed a load, loads=%d", m.Loads())
	}
	if !second.LoadedAt.Equal(first.LoadedAt) {
		t.Fatal("timestamp changed without a load")
	}
}

func TestEnsureLoadedSwapRefreshesSession(t *testing.T) {
	rt := &fakeRuntime{}
	m := newTestManager(t, rt, "a.gguf", "b.gguf")
	a, _ := m.EnsureLoaded(context.Background(), "a.gguf")
	b, err := m.EnsureLoaded(context.Background(), "b.gguf")
	if err != nil {
		t.Fatalf("ensure b: %v", err)
	}
	if m.Loads() != 2 {
		t.Fatalf("loads=%d", m.Loads())
	}
	if b.DisplayName != "b.gguf" || b.LoadedAt.Before(a.LoadedAt) {
		t.Fatalf("session not refreshed: %+v", b)
	}
}

func TestEnsureLoadedUnknownModel(t *testing.T) {
	m := newTestManager(t, &fakeRuntime{}, "a.gguf")
	_, err := m.EnsureLoaded(context.Background(), "missing-model")
	if !registry.IsModelNotFound(err) {
		t.Fatalf("expected model not found, got %v", err)
	}
}

func TestEnsureLoadedNothingAvailable(t *testing.T) {
	m := newTestManager(t, &fakeRuntime{})
	_, err := m.EnsureLoaded(context.Background(), "")
	if !IsNotLoaded(err) {
		t.Fatalf("expected not-loaded, got %v", err)
	}
}

func TestEnsureLoadedLoneStoredModel(t *testing.T) {
	rt := &fakeRuntime{}
	m := newTestManager(t, rt, "only.gguf")
	a, err := m.EnsureLoaded(context.Background(), "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if a.DisplayName != "only.gguf" || m.Loads() != 1 {
		t.Fatalf("session %+v loads=%d", a, m.Loads())
	}
}

func TestEnsureLoadedFallsBackToRuntime(t *testing.T) {
	rt := &fakeRuntime{path: "/models/resident.gguf"}
	m := newTestManager(t, rt)
	a, err := m.EnsureLoaded(context.Background(), "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if a.DisplayName != "resident.gguf" {
		t.Fatalf("display name %q", a.DisplayName)
	}
}

func TestGenerateStreamsAndAggregates(t *testing.T) {
	rt := &fakeRuntime{tokens: []string{"a", "b", "c"}}
	m := newTestManager(t, rt, "a.gguf")
	var got []string
	out, err := m.Generate(context.Background(), Job{Model: "a.gguf", Prompt: "hi"}, func(tok string) error {
		got = append(got, tok)
		return nil
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Content != "abc" || len(got) != 3 {
		t.Fatalf("content=%q tokens=%v", out.Content, got)
	}
	if out.Session.DisplayName != "a.gguf" {
		t.Fatalf("session %+v", out.Session)
	}
}

func TestGenerateNilCallbackAggregates(t *testing.T) {
	rt := &fakeRuntime{tokens: []string{"a", "b", "c"}}
	m := newTestManager(t, rt, "a.gguf")
	out, err := m.Generate(context.Background(), Job{Model: "a.gguf", Prompt: "hi"}, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Content != "abc" || out.FinishReason != "stop" {
		t.Fatalf("outcome: %+v", out)
	}
}

func TestGenerateCooperativeCancel(t *testing.T) {
	rt := &fakeRuntime{tokens: []string{"a", "b", "c", "d"}}
	m := newTestManager(t, rt, "a.gguf")
	n := 0
	out, err := m.Generate(context.Background(), Job{Model: "a.gguf"}, func(string) error {
		n++
		if n == 2 {
			return context.Canceled
		}
		return nil
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.FinishReason != "cancel" || n != 2 {
		t.Fatalf("reason=%s n=%d", out.FinishReason, n)
	}
}

func TestThinkingToggleAffectsSettings(t *testing.T) {
	m := newTestManager(t, &fakeRuntime{}, "a.gguf")
	if m.ResolveSettings(nil).Thinking {
		t.Fatal("thinking should default off")
	}
	m.SetThinking(true)
	if !m.ResolveSettings(nil).Thinking {
		t.Fatal("thinking toggle not applied")
	}
}
