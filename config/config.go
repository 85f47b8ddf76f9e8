// Package config loads the service configuration from a YAML file and
// fills in defaults for anything left unset.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// RequestTimeoutSeconds bounds each request, the websocket event
	// stream excepted.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// StorageConfig configures the on-disk layout.
type StorageConfig struct {
	// IndexDir persists the vector index. Empty keeps it in memory.
	IndexDir string `yaml:"index_dir"`

	// Collection names the chunk collection inside the index.
	Collection string `yaml:"collection"`

	// MemoryDir holds long-term memory items.
	MemoryDir string `yaml:"memory_dir"`

	// CheckpointDir holds short-term thread checkpoints.
	CheckpointDir string `yaml:"checkpoint_dir"`
}

// LLMConfig configures the Claude client.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	MaxTokens   int64   `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	// Provider is "mock" or "onnx".
	Provider string `yaml:"provider"`

	Dimensions int `yaml:"dimensions"`

	// ModelPath and TokenizerPath are required for the onnx provider.
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	LibraryPath   string `yaml:"library_path"`

	// CacheEntries sizes the in-process embedding cache. Zero disables
	// caching.
	CacheEntries int64 `yaml:"cache_entries"`
}

// ChunkingConfig configures the text splitter.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig configures MMR retrieval.
type RetrievalConfig struct {
	K      int     `yaml:"k"`
	FetchK int     `yaml:"fetch_k"`
	Lambda float64 `yaml:"lambda"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Development switches to the human-readable console encoder.
	Development bool `yaml:"development"`
}

// Load reads the file at path, applies defaults, and validates. An
// empty path returns the pure defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "mock":
	case "onnx":
		if c.Embedding.ModelPath == "" || c.Embedding.TokenizerPath == "" {
			return fmt.Errorf("onnx embedding provider requires model_path and tokenizer_path")
		}
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Retrieval.Lambda < 0 || c.Retrieval.Lambda > 1 {
		return fmt.Errorf("retrieval lambda %v outside [0,1]", c.Retrieval.Lambda)
	}
	if c.Retrieval.FetchK < c.Retrieval.K {
		return fmt.Errorf("retrieval fetch_k %d smaller than k %d", c.Retrieval.FetchK, c.Retrieval.K)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk_overlap %d must be smaller than chunk_size %d",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	return nil
}
