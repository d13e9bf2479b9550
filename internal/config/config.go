// Package config provides configuration loading and structs for the ronbun server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Store   StoreConfig   `yaml:"store"`
	Convert ConvertConfig `yaml:"convert"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxUploadMB int      `yaml:"max_upload_mb"`
}

// LLMConfig holds settings for the remote language model endpoint.
// The API key itself is never stored in the file; APIKeyEnv names the
// environment variable that carries it.
type LLMConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	MaxTokens int    `yaml:"max_tokens"`
	// Temperature is a pointer so an explicit 0 is distinguishable from unset.
	Temperature    *float64 `yaml:"temperature"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (l *LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// TemperatureOrDefault returns the sampling temperature; defaults to 0.1 when unset.
func (l *LLMConfig) TemperatureOrDefault() float64 {
	if l.Temperature != nil {
		return *l.Temperature
	}
	return 0.1
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	MaxDocumentAgeHours int `yaml:"max_document_age_hours"`
}

// MaxDocumentAge returns the eviction threshold as a duration.
func (s *StoreConfig) MaxDocumentAge() time.Duration {
	return time.Duration(s.MaxDocumentAgeHours) * time.Hour
}

// ConvertConfig holds PDF conversion settings. Variant selects the pipeline:
// "text" for plain text extraction, "markdown" for the markdown+images pipeline.
type ConvertConfig struct {
	Variant     string `yaml:"variant"`
	MaxImages   int    `yaml:"max_images"`
	MinImageDim int    `yaml:"min_image_dim"`
}

// WatchConfig holds auto-ingest directory settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Validate rejects configurations the rest of the system cannot act on.
func (c *Config) Validate() error {
	switch c.Convert.Variant {
	case "text", "markdown":
	default:
		return fmt.Errorf("convert.variant must be \"text\" or \"markdown\", got %q", c.Convert.Variant)
	}
	if c.Store.MaxDocumentAgeHours <= 0 {
		return fmt.Errorf("store.max_document_age_hours must be positive, got %d", c.Store.MaxDocumentAgeHours)
	}
	return nil
}

// expandPath converts a path to absolute. "~/..." is relative to the home
// directory, "./..." to configDir, and other relative paths to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
