// Package backends tracks alternate model backends: the built-in local
// runtime, the on-device Apple foundation model, and remote API providers.
// It owns enablement state and credentials; actual inference stays with the
// session manager.
package backends

import (
	"runtime"
	"sort"
	"strings"
	"sync"
)

// Backend describes one selectable backend.
type Backend struct {
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	Available bool   `json:"available"`
	HasKey    bool   `json:"has_key,omitempty"`
}

// Hub holds backend state behind a single lock.
type Hub struct {
	mu       sync.Mutex
	selected string
	remote   map[string]*remoteProvider
	apple    bool
}

type remoteProvider struct {
	enabled bool
	apiKey  string
}

// knownProviders is the fixed set of remote providers we can talk to.
var knownProviders = []string{"openai", "anthropic", "mistral"}

func New() *Hub {
	remote := make(map[string]*remoteProvider, len(knownProviders))
	for _, p := range knownProviders {
		remote[p] = &remoteProvider{}
	}
	return &Hub{selected: "local", remote: remote}
}

// List reports every backend with its current state.
func (h *Hub) List() []Backend {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []Backend{
		{Name: "local", Enabled: h.selected == "local", Available: true},
		{Name: "apple-foundation", Enabled: h.apple, Available: appleAvailable()},
	}
	names := make([]string, 0, len(h.remote))
	for n := range h.remote {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		p := h.remote[n]
		out = append(out, Backend{
			Name:      "remote/" + n,
			Enabled:   p.enabled,
			Available: p.apiKey != "",
			HasKey:    p.apiKey != "",
		})
	}
	return out
}

// Select makes name the active backend.
func (h *Hub) Select(name string) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "local":
	case name == "apple-foundation":
		if !appleAvailable() {
			return unsupportedPlatformError{}
		}
	case strings.HasPrefix(name, "remote/"):
		h.mu.Lock()
		p, ok := h.remote[strings.TrimPrefix(name, "remote/")]
		enabled := ok && p.enabled
		h.mu.Unlock()
		if !ok {
			return unknownBackendError{name: name}
		}
		if !enabled {
			return providerDisabledError{name: name}
		}
	default:
		return unknownBackendError{name: name}
	}
	h.mu.Lock()
	h.selected = name
	h.mu.Unlock()
	return nil
}

// Selected returns the active backend name.
func (h *Hub) Selected() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selected
}

// EnableApple switches the Apple foundation backend on or off. Enabling on a
// non-Apple host fails the device requirement check.
func (h *Hub) EnableApple(enabled bool) error {
	if enabled && !appleAvailable() {
		return deviceRequirementsError{}
	}
	h.mu.Lock()
	h.apple = enabled
	h.mu.Unlock()
	return nil
}

// SetProviderKey stores a remote provider credential.
func (h *Hub) SetProviderKey(provider, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.remote[provider]
	if !ok {
		return unknownBackendError{name: provider}
	}
	p.apiKey = strings.TrimSpace(key)
	return nil
}

// EnableProvider switches a remote provider on. A provider without a stored
// key cannot be enabled.
func (h *Hub) EnableProvider(provider string, enabled bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.remote[provider]
	if !ok {
		return unknownBackendError{name: provider}
	}
	if enabled && p.apiKey == "" {
		return missingAPIKeyError{name: provider}
	}
	p.enabled = enabled
	return nil
}

func appleAvailable() bool { return runtime.GOOS == "darwin" }
