package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNew(t *testing.T) {
	e, err := New(ProviderNone, "", "", "", 0)
	if err != nil {
		t.Fatalf("provider none: %v", err)
	}
	if e != nil {
		t.Error("provider none must return nil embedder")
	}

	e, err = New(ProviderOllama, "http://localhost:11434", "", "", 0)
	if err != nil {
		t.Fatalf("provider ollama: %v", err)
	}
	if e == nil || e.Model() != DefaultOllamaModel || e.Dimensions() != DefaultOllamaDims {
		t.Errorf("ollama defaults not applied: %v", e)
	}

	if _, err := New(ProviderOpenAI, "", "", "", 0); err == nil {
		t.Error("openai without api key must fail")
	}

	if _, err := New("milvus", "", "", "", 0); err == nil {
		t.Error("unknown provider must fail")
	}
}

func TestOllamaClient_Embed(t *testing.T) {
	var gotReq ollamaEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embeddings: [][]float32{{1, 0}, {0, 1}},
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "test-model", 2)
	vecs, err := c.Embed(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("unexpected vectors: %v", vecs)
	}
	if gotReq.Model != "test-model" || len(gotReq.Input) != 2 {
		t.Errorf("unexpected request: %+v", gotReq)
	}
}

func TestOllamaClient_EmptyInput(t *testing.T) {
	c := NewOllamaClient("http://unused.invalid", "", 0)
	vecs, err := c.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil for empty input, got %v", vecs)
	}
}

func TestOllamaClient_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "", 0)
	_, err := c.Embed(context.Background(), []string{"alpha"})
	var retryErr *RetryableError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if retryErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d", retryErr.StatusCode)
	}
}

func TestOllamaClient_ClientErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "", 0)
	_, err := c.Embed(context.Background(), []string{"alpha"})
	if err == nil {
		t.Fatal("expected error")
	}
	var retryErr *RetryableError
	if errors.As(err, &retryErr) {
		t.Error("400 must not be retryable")
	}
}

func TestOllamaClient_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1}}})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "", 0)
	if _, err := c.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestOpenAIClient_RestoresIndexOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization header: %q", got)
		}
		w.Write([]byte(`{"data":[
			{"embedding":[0,1],"index":1},
			{"embedding":[1,0],"index":0}
		]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("sk-test", "", 0)
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	c.endpoint = srv.URL

	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("index order not restored: %v", vecs)
	}
}
