// Package config provides configuration loading and structs for kokoro.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when the provider API key is not set.
var ErrMissingCredential = errors.New("missing provider credential")

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Source     SourceConfig     `yaml:"source"`
	Cache      CacheConfig      `yaml:"cache"`
	Provider   ProviderConfig   `yaml:"provider"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host" validate:"required"`
	Port           int           `yaml:"port" validate:"min=1,max=65535"`
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
}

// SourceConfig names the single document the corpus is built from.
// Exactly one of URL and Path is used; Path wins when both are set.
type SourceConfig struct {
	URL          string        `yaml:"url" validate:"omitempty,url"`
	Path         string        `yaml:"path"`
	MaxBytes     int64         `yaml:"max_bytes" validate:"gt=0"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
}

// Location returns the path when set, otherwise the URL.
func (s *SourceConfig) Location() string {
	if s.Path != "" {
		return s.Path
	}
	return s.URL
}

// CacheConfig holds the embedding cache location.
type CacheConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// ProviderConfig selects the model provider. Name "mock" runs fully offline.
type ProviderConfig struct {
	Name      string `yaml:"name" validate:"oneof=mistral openai mock"`
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv string `yaml:"api_key_env" validate:"required"`
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	Model      string        `yaml:"model" validate:"required"`
	BatchSize  int           `yaml:"batch_size" validate:"min=1"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	CacheSize  int           `yaml:"cache_size" validate:"min=0"`
	Dimensions int           `yaml:"dimensions" validate:"min=0"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Model   string        `yaml:"model" validate:"required"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// ChunkingConfig holds chunker settings.
type ChunkingConfig struct {
	Size int `yaml:"size" validate:"min=1"`
}

// RetrievalConfig holds retrieval and prompt settings.
type RetrievalConfig struct {
	TopK  int    `yaml:"top_k" validate:"min=1"`
	Topic string `yaml:"topic" validate:"required"`
}

// Load reads and parses the config file at path, applies defaults, expands paths and validates.
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

	configDir := filepath.Dir(path)
	cfg.Cache.Path = expandPath(cfg.Cache.Path, configDir)
	if cfg.Source.Path != "" {
		cfg.Source.Path = expandPath(cfg.Source.Path, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration with relative paths resolved against dir.
func Default(dir string) *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Cache.Path = expandPath(cfg.Cache.Path, dir)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints. Errors name the offending yaml fields.
func (c *Config) Validate() error {
	if c.Source.URL == "" && c.Source.Path == "" {
		return errors.New("invalid config: source.url or source.path is required")
	}
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// APIKey returns the provider credential from the environment.
// The mock provider needs none and gets an empty key.
func (c *Config) APIKey() (string, error) {
	if c.Provider.Name == ProviderMock {
		return "", nil
	}
	key := strings.TrimSpace(os.Getenv(c.Provider.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("%w: %s not found in environment", ErrMissingCredential, c.Provider.APIKeyEnv)
	}
	return key, nil
}

// expandPath converts a path to absolute. Paths starting with "./" and bare relative
// names are relative to configDir; "~/" is the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}
	return filepath.Join(configDir, path)
}
