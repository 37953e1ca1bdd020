package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

const (
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOpenAIDims  = 1536

	openAIEndpoint = "https://api.openai.com/v1/embeddings"
)

// OpenAIClient calls the OpenAI embeddings API.
type OpenAIClient struct {
	apiKey     string
	model      string
	dims       int
	endpoint   string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey, model string, dims int) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedding provider requires an api key")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if dims <= 0 {
		dims = DefaultOpenAIDims
	}
	return &OpenAIClient{
		apiKey:   apiKey,
		model:    model,
		dims:     dims,
		endpoint: openAIEndpoint,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(openAIEmbedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp openAIEmbedResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("openai error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(apiResp.Data), len(texts))
	}

	// Output order must match input order; the API keys rows by index.
	sort.Slice(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})
	out := make([][]float32, len(apiResp.Data))
	for i, d := range apiResp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

func (c *OpenAIClient) Dimensions() int { return c.dims }
func (c *OpenAIClient) Model() string   { return c.model }

func (c *OpenAIClient) Close() {
	c.httpClient.CloseIdleConnections()
}
