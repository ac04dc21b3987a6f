package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	ChatDB       string `json:"chat_db" yaml:"chat_db" toml:"chat_db"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	// Grace window in milliseconds before a silent connection is treated
	// as a signaling peer.
	GraceMS  int    `json:"grace_ms" yaml:"grace_ms" toml:"grace_ms"`
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
	// Runtime knobs for the in-process llama adapter.
	CtxSize int `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	Threads int `json:"threads" yaml:"threads" toml:"threads"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
