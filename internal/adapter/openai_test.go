package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/llmhub-dev/llmhub/internal/schema"
)

func testOpenAICompat(baseURL string) *OpenAICompat {
	return NewOpenAICompat(OpenAICompatConfig{
		Name:    "openai",
		BaseURL: baseURL,
		ModelMap: map[string]string{
			schema.TierSmart: "gpt-4-turbo",
			schema.TierFast:  "gpt-3.5-turbo",
		},
		DefaultModel: "gpt-3.5-turbo",
	})
}

func TestOpenAICompatChatCompletion(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if errDecode := json.NewDecoder(r.Body).Decode(&gotBody); errDecode != nil {
			t.Errorf("decode request: %v", errDecode)
		}
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-123",
			"created": 1700000000,
			"choices": [{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],
			"usage": {"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 999}
		}`))
	}))
	defer srv.Close()

	a := testOpenAICompat(srv.URL)
	req := &schema.ChatRequest{
		Tier: schema.TierSmart,
		Messages: []schema.ChatMessage{
			{Role: schema.RoleSystem, Content: "be brief"},
			{Role: schema.RoleUser, Content: "hello"},
		},
	}
	resp, err := a.ChatCompletion(context.Background(), req, "sk-test")
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}

	if gotAuth != "Bearer sk-test" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody.Model != "gpt-4-turbo" {
		t.Fatalf("mapped model = %q, want gpt-4-turbo", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != schema.RoleSystem {
		t.Fatalf("messages not passed through verbatim: %+v", gotBody.Messages)
	}
	if gotBody.Temperature != schema.DefaultTemperature || gotBody.MaxTokens != schema.DefaultMaxTokens {
		t.Fatalf("defaults not applied: temp=%v max=%d", gotBody.Temperature, gotBody.MaxTokens)
	}

	if resp.ID != "chatcmpl-123" || resp.Model != schema.TierSmart {
		t.Fatalf("unexpected normalized response: %+v", resp)
	}
	if resp.Choices[0].Message.Content != "hi" || resp.Choices[0].FinishReason != "stop" {
		t.Fatalf("unexpected choice: %+v", resp.Choices[0])
	}
	// The vendor-reported total (999) is ignored in favor of the sum.
	if resp.Usage.TotalTokens != 12 {
		t.Fatalf("total tokens = %d, want 12", resp.Usage.TotalTokens)
	}
}

func TestOpenAICompatUnknownTierUsesDefaultModel(t *testing.T) {
	t.Parallel()

	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body openAIChatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		_, _ = w.Write([]byte(`{"choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	a := testOpenAICompat(srv.URL)
	req := &schema.ChatRequest{
		Tier:     "experimental",
		Messages: []schema.ChatMessage{{Role: schema.RoleUser, Content: "x"}},
	}
	if _, err := a.ChatCompletion(context.Background(), req, "sk-test"); err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if gotModel != "gpt-3.5-turbo" {
		t.Fatalf("model = %q, want default gpt-3.5-turbo", gotModel)
	}
}

func TestOpenAICompatProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	a := testOpenAICompat(srv.URL)
	req := &schema.ChatRequest{
		Tier:     schema.TierFast,
		Messages: []schema.ChatMessage{{Role: schema.RoleUser, Content: "x"}},
	}
	_, err := a.ChatCompletion(context.Background(), req, "sk-test")
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if provErr.Status != http.StatusTooManyRequests || !provErr.IsRateLimited() {
		t.Fatalf("unexpected provider error: %+v", provErr)
	}
}

func TestOpenAICompatTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	a := testOpenAICompat(srv.URL)
	req := &schema.ChatRequest{
		Tier:     schema.TierFast,
		Messages: []schema.ChatMessage{{Role: schema.RoleUser, Content: "x"}},
	}
	_, err := a.ChatCompletion(context.Background(), req, "sk-test")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
}

func TestOpenAICompatListModels(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4-turbo"},{"id":"gpt-3.5-turbo"}]}`))
	}))
	defer srv.Close()

	a := NewOpenAICompat(OpenAICompatConfig{Name: "openai", ModelsURL: srv.URL, DefaultModel: "gpt-3.5-turbo"})
	models, err := a.ListModels(context.Background(), "sk-test")
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0] != "gpt-4-turbo" {
		t.Fatalf("unexpected models: %v", models)
	}
}

func TestOpenAICompatListModelsStaticFallback(t *testing.T) {
	t.Parallel()

	a := NewOpenAICompat(OpenAICompatConfig{
		Name: "deepseek",
		ModelMap: map[string]string{
			schema.TierSmart: "deepseek-chat",
			schema.TierFast:  "deepseek-chat",
		},
		DefaultModel: "deepseek-chat",
	})
	models, err := a.ListModels(context.Background(), "sk-test")
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 || models[0] != "deepseek-chat" {
		t.Fatalf("expected deduplicated static list, got %v", models)
	}
}
