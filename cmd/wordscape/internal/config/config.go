// Package config loads the wordscape CLI configuration.
//
// Configuration lives under os.UserConfigDir()/wordscape/config.yaml:
//
//	~/Library/Application Support/wordscape/config.yaml   (macOS)
//	~/.config/wordscape/config.yaml                       (Linux)
//	%AppData%/wordscape/config.yaml                       (Windows)
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

const (
	appDir     = "wordscape"
	configFile = "config.yaml"
)

// Config is the CLI configuration.
type Config struct {
	// APIKey authenticates the ephemeral credential request. Falls
	// back to the OPENAI_API_KEY environment variable when empty.
	APIKey string `yaml:"api_key"`

	// Model overrides the default realtime model.
	Model string `yaml:"model,omitempty"`

	// Voice overrides the default voice.
	Voice string `yaml:"voice,omitempty"`

	// SystemPrompt is injected at the start of each session.
	SystemPrompt string `yaml:"system_prompt,omitempty"`

	// Transport selects "webrtc" (default) or "websocket".
	Transport string `yaml:"transport,omitempty"`

	// EmbeddingURL is the base URL of the embedding service.
	EmbeddingURL string `yaml:"embedding_url,omitempty"`

	// VocabDir is the vocabulary database directory. Defaults next to
	// the config file.
	VocabDir string `yaml:"vocab_dir,omitempty"`

	// TokenLimit gates new turns once total usage crosses it. Zero
	// disables the gate.
	TokenLimit int `yaml:"token_limit,omitempty"`

	// ReleaseBufferMs is the tail kept open after a push-to-talk
	// release, in milliseconds.
	ReleaseBufferMs int `yaml:"release_buffer_ms,omitempty"`

	// Mobile enables the constrained-device connect preamble.
	Mobile bool `yaml:"mobile,omitempty"`

	// path is where the config was loaded from.
	path string
}

// Dir returns the directory holding the configuration.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// DefaultDir returns the default configuration directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// Load reads the configuration from the default location. A missing
// file yields a usable zero config.
func Load() (*Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, configFile))
}

// LoadFrom reads the configuration from a specific file.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// Save writes the configuration back to its file.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	return nil
}

// ResolveAPIKey returns the configured key or the environment fallback.
func (c *Config) ResolveAPIKey() (string, error) {
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key: set api_key in %s or export OPENAI_API_KEY", c.path)
}

// ResolveVocabDir returns the vocabulary directory, defaulting next to
// the config file.
func (c *Config) ResolveVocabDir() string {
	if c.VocabDir != "" {
		return c.VocabDir
	}
	return filepath.Join(c.Dir(), "vocab")
}
