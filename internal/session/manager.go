package session

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"peerd/internal/registry"
	"peerd/pkg/types"
)

// Active is the single active model session. At most one exists; it is owned
// and mutated only by the Manager.
type Active struct {
	Path        string
	DisplayName string
	LoadedAt    time.Time
}

// Job is one generation request.
type Job struct {
	Model   string
	Prompt  string
	Options map[string]any
}

// Outcome summarizes a finished generation together with the session that
// served it.
type Outcome struct {
	Content      string
	FinishReason string
	Session      Active
}

const (
	defaultMaxQueueDepth = 8
	defaultMaxWait       = 30 * time.Second
)

// ManagerConfig carries optional Manager knobs; zero values select defaults.
type ManagerConfig struct {
	DefaultModel  string
	Defaults      *Settings
	MaxQueueDepth int
	MaxWait       time.Duration
}

// Manager owns the model runtime, the active session and the session-default
// generation settings. Loads and swaps are serialized under mu; generation is
// funneled through a single in-flight slot with a bounded FIFO queue.
type Manager struct {
	log zerolog.Logger
	rt  Runtime
	reg *registry.Registry

	mu           sync.Mutex
	active       *Active
	defaults     Settings
	thinking     bool
	defaultModel string
	loads        uint64

	genCh   chan struct{}
	queueCh chan struct{}
	maxWait time.Duration
}

func NewManager(rt Runtime, reg *registry.Registry, log zerolog.Logger, cfg ManagerConfig) *Manager {
	depth := cfg.MaxQueueDepth
	if depth <= 0 {
		depth = defaultMaxQueueDepth
	}
	wait := cfg.MaxWait
	if wait <= 0 {
		wait = defaultMaxWait
	}
	defaults := DefaultSettings()
	if cfg.Defaults != nil {
		defaults = *cfg.Defaults
	}
	return &Manager{
		log:          log.With().Str("component", "session").Logger(),
		rt:           rt,
		reg:          reg,
		defaults:     defaults,
		defaultModel: cfg.DefaultModel,
		genCh:        make(chan struct{}, 1),
		queueCh:      make(chan struct{}, depth),
		maxWait:      wait,
	}
}

// EnsureLoaded resolves identifier to exactly one stored model and makes sure
// the runtime has it loaded, swapping if needed. With an empty identifier it
// falls back to the configured default model, the cached active session, the
// runtime's loaded model, then a lone stored model. Loads are serialized: concurrent
// calls for different models produce sequential loads, last one wins.
func (m *Manager) EnsureLoaded(ctx context.Context, identifier string) (Active, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := identifier
	if id == "" {
		id = m.defaultModel
	}
	if id == "" {
		if m.active != nil {
			return *m.active, nil
		}
		if p := m.rt.LoadedPath(); p != "" {
			m.active = &Active{Path: p, DisplayName: filepath.Base(p), LoadedAt: time.Now()}
			return *m.active, nil
		}
		if models := m.reg.List(); len(models) == 1 {
			// A lone stored model is unambiguous: use it unasked.
			return m.loadLocked(ctx, models[0])
		}
		return Active{}, notLoadedError{}
	}

	mdl, ok := m.reg.Resolve(id)
	if !ok {
		return Active{}, registry.ErrModelNotFound(id)
	}
	return m.loadLocked(ctx, mdl)
}

// loadLocked makes mdl resident, skipping the runtime call when it already
// is. Caller holds m.mu.
func (m *Manager) loadLocked(ctx context.Context, mdl types.Model) (Active, error) {
	if m.rt.LoadedPath() == mdl.Path {
		// Already resident: no redundant load, keep the existing timestamp.
		if m.active == nil || m.active.Path != mdl.Path {
			m.active = &Active{Path: mdl.Path, DisplayName: mdl.Name, LoadedAt: time.Now()}
		}
		return *m.active, nil
	}

	m.log.Info().Str("model", mdl.Name).Str("projection", mdl.Projection).Msg("loading model")
	if err := m.rt.Load(ctx, mdl.Path, mdl.Projection); err != nil {
		m.log.Error().Err(err).Str("model", mdl.Name).Msg("load failed")
		return Active{}, err
	}
	m.loads++
	m.active = &Active{Path: mdl.Path, DisplayName: mdl.Name, LoadedAt: time.Now()}
	return *m.active, nil
}

// Generate runs one generation job end to end: ensure the model, acquire the
// single in-flight slot, translate options over the session defaults and
// stream tokens through onToken. A nil onToken discards per-token delivery
// and only the aggregated Outcome is returned.
func (m *Manager) Generate(ctx context.Context, job Job, onToken func(string) error) (Outcome, error) {
	if onToken == nil {
		// Non-streaming callers only want the aggregated Outcome.
		onToken = func(string) error { return nil }
	}
	active, err := m.EnsureLoaded(ctx, job.Model)
	if err != nil {
		return Outcome{}, err
	}
	release, err := m.acquireGeneration(ctx)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	cfg := m.settingsFor(job.Options)
	res, err := m.rt.Generate(ctx, job.Prompt, cfg, onToken)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Content: res.Content, FinishReason: res.FinishReason, Session: active}, nil
}

// Embeddings ensures a model and returns one vector per input.
func (m *Manager) Embeddings(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if _, err := m.EnsureLoaded(ctx, model); err != nil {
		return nil, err
	}
	return m.rt.Embeddings(ctx, inputs)
}

// Active returns a copy of the active session, or nil.
func (m *Manager) Active() *Active {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	a := *m.active
	return &a
}

// Loads reports how many runtime load operations have been performed.
func (m *Manager) Loads() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// Defaults returns the session-default settings.
func (m *Manager) Defaults() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaults
}

// ResolveSettings applies opts over the session defaults without mutating
// them; a nil override reuses the cached defaults unchanged.
func (m *Manager) ResolveSettings(opts map[string]any) Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settingsForLocked(opts)
}

func (m *Manager) settingsFor(opts map[string]any) Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settingsForLocked(opts)
}

func (m *Manager) settingsForLocked(opts map[string]any) Settings {
	cfg := m.defaults
	if ov := Translate(m.defaults, opts); ov != nil {
		cfg = *ov
	}
	cfg.Thinking = cfg.Thinking || m.thinking
	return cfg
}

// SetThinking toggles the runtime "thinking" generation mode.
func (m *Manager) SetThinking(enabled bool) {
	m.mu.Lock()
	m.thinking = enabled
	m.mu.Unlock()
}

// Thinking reports the current thinking mode.
func (m *Manager) Thinking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thinking
}

// Close releases the runtime and clears the active session.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
	return m.rt.Close()
}
