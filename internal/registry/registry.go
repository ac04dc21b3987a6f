package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"peerd/pkg/types"
)

// Registry tracks *.gguf model files in a single storage directory.
// It rescans on demand; mutations (copy, delete, finished pulls) keep the
// in-memory listing current.
type Registry struct {
	mu     sync.RWMutex
	dir    string
	models []types.Model
}

// New resolves dir (with '~' expansion) and scans it. A missing directory is
// created so a fresh install starts with an empty registry.
func New(dir string) (*Registry, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	r := &Registry{dir: abs}
	if err := r.Rescan(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the absolute storage directory.
func (r *Registry) Dir() string { return r.dir }

var quantRe = regexp.MustCompile(`(?i)(q\d+(_[a-z0-9]+)*|f16|f32|bf16)`)

// Rescan rebuilds the listing from the storage directory.
func (r *Registry) Rescan() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		if strings.Contains(strings.ToLower(name), "mmproj") {
			// Projection files are companions, not standalone models.
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		m := types.Model{
			Name:       name,
			Path:       filepath.Join(r.dir, name),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
			Quant:      quantRe.FindString(name),
			Projection: r.findProjection(name),
		}
		models = append(models, m)
	}
	r.mu.Lock()
	r.models = models
	r.mu.Unlock()
	return nil
}

// findProjection looks for the model's default multimodal companion file:
// "<base>.mmproj", "<base>.mmproj.gguf" or "<base>-mmproj.gguf".
func (r *Registry) findProjection(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	for _, cand := range []string{base + ".mmproj", base + ".mmproj.gguf", base + "-mmproj.gguf"} {
		p := filepath.Join(r.dir, cand)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// List returns a copy of the current listing.
func (r *Registry) List() []types.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Model, len(r.models))
	copy(out, r.models)
	return out
}

// Resolve maps an identifier to exactly one stored model. Accepted forms, in
// order: exact name, case-insensitive name, file path, and "name:tag" with
// the tag stripped.
func (r *Registry) Resolve(identifier string) (types.Model, bool) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return types.Model{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.models {
		if m.Name == id {
			return m, true
		}
	}
	for _, m := range r.models {
		if strings.EqualFold(m.Name, id) {
			return m, true
		}
	}
	if abs, err := filepath.Abs(id); err == nil {
		for _, m := range r.models {
			if m.Path == abs || m.Path == id {
				return m, true
			}
		}
	}
	if i := strings.LastIndex(id, ":"); i > 0 {
		stripped := id[:i]
		for _, m := range r.models {
			if strings.EqualFold(m.Name, stripped) {
				return m, true
			}
			// Allow the tag form to omit the extension ("tiny:latest" for
			// "tiny.gguf").
			if strings.EqualFold(strings.TrimSuffix(m.Name, filepath.Ext(m.Name)), stripped) {
				return m, true
			}
		}
	}
	// Bare name without extension.
	for _, m := range r.models {
		if strings.EqualFold(strings.TrimSuffix(m.Name, filepath.Ext(m.Name)), id) {
			return m, true
		}
	}
	return types.Model{}, false
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
