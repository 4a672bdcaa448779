package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to field names for environment overrides,
// e.g. KB_DATA_DIR, KB_EMBEDDING_BASE_URL.
const EnvPrefix = "KB_"

// Config holds all configuration for the knowledge base service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Reranker  RerankerConfig  `yaml:"reranker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig holds vector store configuration.
type StoreConfig struct {
	DataDir string `yaml:"data_dir"`
}

// ChunkingConfig holds document chunking configuration.
type ChunkingConfig struct {
	MaxChunkTokens int `yaml:"max_chunk_tokens"`
}

// EmbeddingConfig holds embedding model configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // "openai", "mock"
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	QueryPrefix string `yaml:"query_prefix"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// RerankerConfig holds reranker model configuration.
type RerankerConfig struct {
	Provider   string `yaml:"provider"` // "http", "lexical"
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	APIKeyEnv  string `yaml:"api_key_env"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RetrievalConfig holds query-time configuration.
type RetrievalConfig struct {
	DefaultTopK    int `yaml:"default_top_k"`
	CandidateLimit int `yaml:"candidate_limit"`
}

// IngestConfig holds batch ingestion configuration.
type IngestConfig struct {
	Patterns      []string `yaml:"patterns"`
	Workers       int      `yaml:"workers"`
	FetchTimeout  int      `yaml:"fetch_timeout_sec"`
	MaxConcurrent int      `yaml:"max_concurrent_fetches"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Store: StoreConfig{
			DataDir: "data",
		},
		Chunking: ChunkingConfig{
			MaxChunkTokens: 512,
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			BaseURL:     "http://localhost:8080/v1",
			Model:       "nomic-embed-text-v1.5",
			APIKeyEnv:   "KB_EMBEDDING_API_KEY",
			Dimension:   768,
			BatchSize:   100,
			QueryPrefix: "search_query: ",
			TimeoutSec:  60,
		},
		Reranker: RerankerConfig{
			Provider:   "http",
			BaseURL:    "http://localhost:8081",
			Model:      "mxbai-rerank-base-v1",
			APIKeyEnv:  "KB_RERANKER_API_KEY",
			TimeoutSec: 60,
		},
		Retrieval: RetrievalConfig{
			DefaultTopK:    5,
			CandidateLimit: 20,
		},
		Ingest: IngestConfig{
			Patterns:      []string{"*.md", "*.txt"},
			Workers:       4,
			FetchTimeout:  30,
			MaxConcurrent: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file, then applies environment
// overrides. A missing file yields defaults plus the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envStr(&c.Server.Host, "HOST")
	envInt(&c.Server.Port, "PORT")
	envStr(&c.Store.DataDir, "DATA_DIR")
	envInt(&c.Chunking.MaxChunkTokens, "MAX_CHUNK_TOKENS")
	envStr(&c.Embedding.Provider, "EMBEDDING_PROVIDER")
	envStr(&c.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	envStr(&c.Embedding.Model, "EMBEDDING_MODEL")
	envInt(&c.Embedding.Dimension, "EMBEDDING_DIMENSION")
	envStr(&c.Reranker.Provider, "RERANKER_PROVIDER")
	envStr(&c.Reranker.BaseURL, "RERANKER_BASE_URL")
	envStr(&c.Reranker.Model, "RERANKER_MODEL")
	envInt(&c.Retrieval.DefaultTopK, "DEFAULT_TOP_K")
	envInt(&c.Retrieval.CandidateLimit, "CANDIDATE_LIMIT")
	envInt(&c.Ingest.Workers, "INGEST_WORKERS")
	envStr(&c.Logging.Level, "LOG_LEVEL")
}

func envStr(dst *string, name string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		*dst = v
	}
}

func envInt(dst *int, name string) {
	if v := os.Getenv(EnvPrefix + name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Chunking.MaxChunkTokens < 1 {
		return fmt.Errorf("chunking.max_chunk_tokens must be positive, got %d", c.Chunking.MaxChunkTokens)
	}
	if c.Embedding.Dimension < 1 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Retrieval.DefaultTopK < 1 {
		return fmt.Errorf("retrieval.default_top_k must be positive, got %d", c.Retrieval.DefaultTopK)
	}
	if c.Retrieval.CandidateLimit < c.Retrieval.DefaultTopK {
		return fmt.Errorf("retrieval.candidate_limit %d is below default_top_k %d",
			c.Retrieval.CandidateLimit, c.Retrieval.DefaultTopK)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest.workers must be positive, got %d", c.Ingest.Workers)
	}
	return nil
}

// EmbeddingTimeout returns the embedding request timeout as a duration.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSec) * time.Second
}

// RerankerTimeout returns the reranker request timeout as a duration.
func (c *Config) RerankerTimeout() time.Duration {
	return time.Duration(c.Reranker.TimeoutSec) * time.Second
}

// FetchTimeout returns the manifest fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Ingest.FetchTimeout) * time.Second
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
