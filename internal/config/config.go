package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgallion1/wikigest/internal/chunker"
)

type Config struct {
	Port string

	// Storage
	DatabasePath string
	ExportDir    string // empty disables the file export mirror

	// Auth
	APIKey string

	// Embeddings
	EmbedProvider  string // ollama | openai | none
	EmbedBaseURL   string
	EmbedAPIKey    string
	EmbedModel     string
	EmbedDims      int
	EmbedBatchSize int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Chunking
	Chunking chunker.Options

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		DatabasePath: envOr("DATABASE_PATH", "wikigest.db"),
		ExportDir:    os.Getenv("EXPORT_DIR"),

		APIKey: os.Getenv("WIKIGEST_API_KEY"),

		EmbedProvider:  envOr("EMBED_PROVIDER", "none"),
		EmbedBaseURL:   envOr("EMBED_BASE_URL", "http://localhost:11434"),
		EmbedAPIKey:    os.Getenv("EMBED_API_KEY"),
		EmbedModel:     os.Getenv("EMBED_MODEL"),
		EmbedDims:      envInt("EMBED_DIMS", 0),
		EmbedBatchSize: envInt("EMBED_BATCH_SIZE", 32),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		Chunking: chunker.Options{
			MinTokens:       envInt("MIN_TOKENS", chunker.DefaultOptions.MinTokens),
			TargetTokens:    envInt("TARGET_TOKENS", chunker.DefaultOptions.TargetTokens),
			MaxTokens:       envInt("MAX_TOKENS", chunker.DefaultOptions.MaxTokens),
			SentenceOverlap: envInt("SENTENCE_OVERLAP", chunker.DefaultOptions.SentenceOverlap),
		},

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate rejects unusable settings. Chunking thresholds are never
// clamped: a bad value fails startup instead of silently changing the
// ids a corpus would be chunked under.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("WIKIGEST_API_KEY is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if err := c.Chunking.Validate(); err != nil {
		return err
	}
	switch c.EmbedProvider {
	case "ollama", "openai", "none":
	default:
		return fmt.Errorf("EMBED_PROVIDER must be ollama, openai or none, got %q", c.EmbedProvider)
	}
	if c.EmbedProvider == "openai" && c.EmbedAPIKey == "" {
		return fmt.Errorf("EMBED_API_KEY is required for the openai provider")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
