package config

import "time"

// Provider names.
const (
	ProviderMistral = "mistral"
	ProviderOpenAI  = "openai"
	ProviderMock    = "mock"
)

// DefaultSourceURL is the article the default corpus is built from.
const DefaultSourceURL = "https://www.medicalnewstoday.com/articles/154543"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Source.URL == "" && cfg.Source.Path == "" {
		cfg.Source.URL = DefaultSourceURL
	}
	if cfg.Source.MaxBytes == 0 {
		cfg.Source.MaxBytes = 20 << 20
	}
	if cfg.Source.FetchTimeout == 0 {
		cfg.Source.FetchTimeout = 30 * time.Second
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = "embeddings_cache.db"
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = ProviderMistral
	}
	if cfg.Provider.BaseURL == "" {
		switch cfg.Provider.Name {
		case ProviderMistral:
			cfg.Provider.BaseURL = "https://api.mistral.ai/v1"
		case ProviderOpenAI:
			cfg.Provider.BaseURL = "https://api.openai.com/v1"
		}
	}
	if cfg.Provider.APIKeyEnv == "" {
		if cfg.Provider.Name == ProviderOpenAI {
			cfg.Provider.APIKeyEnv = "OPENAI_API_KEY"
		} else {
			cfg.Provider.APIKeyEnv = "MISTRAL_API_KEY"
		}
	}
	if cfg.Embedding.Model == "" {
		if cfg.Provider.Name == ProviderOpenAI {
			cfg.Embedding.Model = "text-embedding-3-small"
		} else {
			cfg.Embedding.Model = "mistral-embed"
		}
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 10
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Embedding.Dimensions == 0 && cfg.Provider.Name == ProviderMock {
		cfg.Embedding.Dimensions = 64
	}
	if cfg.Generation.Model == "" {
		if cfg.Provider.Name == ProviderOpenAI {
			cfg.Generation.Model = "gpt-4o-mini"
		} else {
			cfg.Generation.Model = "mistral-medium"
		}
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 120 * time.Second
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 400
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 2
	}
	if cfg.Retrieval.Topic == "" {
		cfg.Retrieval.Topic = "mental health"
	}
}
