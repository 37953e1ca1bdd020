package embedder

import (
	"context"
	"fmt"
)

// Embedder turns chunk texts into dense vectors.
type Embedder interface {
	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
	Close()
}

// Provider names accepted by New.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// New builds the configured embedding provider. Provider "none" disables
// embedding generation; chunks are stored without vectors.
func New(provider, baseURL, apiKey, model string, dims int) (Embedder, error) {
	switch provider {
	case ProviderOllama:
		return NewOllamaClient(baseURL, model, dims), nil
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, model, dims)
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", provider)
	}
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
