package config

import (
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/wikigest/internal/chunker"
)

func validConfig() Config {
	return Config{
		Port:           "8091",
		DatabasePath:   "test.db",
		APIKey:         "secret",
		EmbedProvider:  "none",
		EmbedBatchSize: 32,
		WorkerCount:    4,
		MaxQueueSize:   100,
		MaxUploadBytes: 1 << 20,
		Chunking:       chunker.DefaultOptions,
		JobTTL:         time.Hour,
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(c *Config) {}, ""},
		{"missing api key", func(c *Config) { c.APIKey = "" }, "WIKIGEST_API_KEY"},
		{"missing db path", func(c *Config) { c.DatabasePath = "" }, "DATABASE_PATH"},
		{"bad provider", func(c *Config) { c.EmbedProvider = "milvus" }, "EMBED_PROVIDER"},
		{"openai without key", func(c *Config) { c.EmbedProvider = "openai" }, "EMBED_API_KEY"},
		{"chunking min over target", func(c *Config) { c.Chunking.MinTokens = 500 }, "MinTokens"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_PATH", "EXPORT_DIR", "WIKIGEST_API_KEY",
		"EMBED_PROVIDER", "EMBED_BATCH_SIZE", "WORKER_COUNT",
		"MAX_QUEUE_SIZE", "MAX_UPLOAD_BYTES", "MIN_TOKENS",
		"TARGET_TOKENS", "MAX_TOKENS", "SENTENCE_OVERLAP", "JOB_TTL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8091" {
		t.Errorf("port: got %q", cfg.Port)
	}
	if cfg.EmbedProvider != "none" {
		t.Errorf("provider: got %q", cfg.EmbedProvider)
	}
	if cfg.Chunking != chunker.DefaultOptions {
		t.Errorf("chunking defaults: got %+v", cfg.Chunking)
	}
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 100 {
		t.Errorf("pool defaults: got %d/%d", cfg.WorkerCount, cfg.MaxQueueSize)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("job ttl: got %v", cfg.JobTTL)
	}
}

func TestLoadClampsOperationalKnobs(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-2")
	t.Setenv("MAX_QUEUE_SIZE", "0")
	t.Setenv("EMBED_BATCH_SIZE", "-1")

	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("worker count: got %d", cfg.WorkerCount)
	}
	if cfg.MaxQueueSize != 100 {
		t.Errorf("queue size: got %d", cfg.MaxQueueSize)
	}
	if cfg.EmbedBatchSize != 32 {
		t.Errorf("batch size: got %d", cfg.EmbedBatchSize)
	}
}
