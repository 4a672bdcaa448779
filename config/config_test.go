package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Embedding.Dimension != 768 {
		t.Errorf("dimension = %d, want 768", cfg.Embedding.Dimension)
	}
	if cfg.Chunking.MaxChunkTokens != 512 {
		t.Errorf("max chunk tokens = %d, want 512", cfg.Chunking.MaxChunkTokens)
	}
	if cfg.Retrieval.DefaultTopK != 5 {
		t.Errorf("default top k = %d, want 5", cfg.Retrieval.DefaultTopK)
	}
	if cfg.Retrieval.CandidateLimit != 20 {
		t.Errorf("candidate limit = %d, want 20", cfg.Retrieval.CandidateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("port = %d, want default 8000", cfg.Server.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	content := `
server:
  port: 9090
embedding:
  dimension: 384
retrieval:
  default_top_k: 3
  candidate_limit: 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Embedding.Dimension != 384 {
		t.Errorf("dimension = %d, want 384", cfg.Embedding.Dimension)
	}
	if cfg.Retrieval.DefaultTopK != 3 || cfg.Retrieval.CandidateLimit != 30 {
		t.Errorf("retrieval = %+v", cfg.Retrieval)
	}
	// Unset fields keep defaults.
	if cfg.Chunking.MaxChunkTokens != 512 {
		t.Errorf("max chunk tokens = %d, want default 512", cfg.Chunking.MaxChunkTokens)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KB_PORT", "7070")
	t.Setenv("KB_EMBEDDING_DIMENSION", "1024")
	t.Setenv("KB_LOG_LEVEL", "debug")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Embedding.Dimension != 1024 {
		t.Errorf("dimension = %d, want 1024", cfg.Embedding.Dimension)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero top_k", func(c *Config) { c.Retrieval.DefaultTopK = 0 }},
		{"candidate limit below top_k", func(c *Config) { c.Retrieval.CandidateLimit = 2 }},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = 8123
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Server.Port != 8123 {
		t.Errorf("port = %d, want 8123", loaded.Server.Port)
	}
}
