package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/llmhub-dev/llmhub/internal/schema"
)

func TestGeminiChatCompletion(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey string
	var gotBody geminiChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if errDecode := json.NewDecoder(r.Body).Decode(&gotBody); errDecode != nil {
			t.Errorf("decode request: %v", errDecode)
		}
		_, _ = w.Write([]byte(`{
			"candidates": [
				{"content":{"parts":[{"text":"first "},{"text":"answer"}]},"finishReason":"STOP"},
				{"content":{"parts":[{"text":"second answer"}]},"finishReason":"STOP"}
			],
			"usageMetadata": {"promptTokenCount": 11, "candidatesTokenCount": 7, "totalTokenCount": 42}
		}`))
	}))
	defer srv.Close()

	a := NewGemini()
	a.baseURL = srv.URL

	req := &schema.ChatRequest{
		Tier: schema.TierFast,
		Messages: []schema.ChatMessage{
			{Role: schema.RoleSystem, Content: "be brief"},
			{Role: schema.RoleUser, Content: "hello"},
			{Role: schema.RoleAssistant, Content: "hi"},
		},
	}
	resp, err := a.ChatCompletion(context.Background(), req, "gk-test")
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}

	if !strings.Contains(gotPath, "gemini-1.5-flash:generateContent") {
		t.Fatalf("path = %q, want per-model generateContent", gotPath)
	}
	if gotKey != "gk-test" {
		t.Fatalf("credential should travel as query param, got %q", gotKey)
	}
	// System folds into user; assistant maps to model.
	wantRoles := []string{"user", "user", "model"}
	for i, content := range gotBody.Contents {
		if content.Role != wantRoles[i] {
			t.Fatalf("content[%d].role = %q, want %q", i, content.Role, wantRoles[i])
		}
	}
	if gotBody.GenerationConfig.Temperature != schema.DefaultTemperature {
		t.Fatalf("temperature = %v", gotBody.GenerationConfig.Temperature)
	}
	if gotBody.GenerationConfig.MaxOutputTokens != schema.DefaultMaxTokens {
		t.Fatalf("maxOutputTokens = %d", gotBody.GenerationConfig.MaxOutputTokens)
	}

	if len(resp.Choices) != 2 {
		t.Fatalf("each candidate should become a choice, got %d", len(resp.Choices))
	}
	if resp.Choices[0].Message.Content != "first answer" || resp.Choices[0].Index != 0 {
		t.Fatalf("choice 0 = %+v", resp.Choices[0])
	}
	if resp.Choices[1].Message.Content != "second answer" || resp.Choices[1].Index != 1 {
		t.Fatalf("choice 1 = %+v", resp.Choices[1])
	}
	// 42 from the vendor is ignored; the sum wins.
	if resp.Usage.TotalTokens != 18 {
		t.Fatalf("total tokens = %d, want 18", resp.Usage.TotalTokens)
	}
}

func TestGeminiListModels(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[
			{"name":"models/gemini-1.5-pro"},
			{"name":"models/gemini-1.5-flash"},
			{"name":"models/embedding-001"}
		]}`))
	}))
	defer srv.Close()

	a := NewGemini()
	a.baseURL = srv.URL
	models, err := a.ListModels(context.Background(), "gk-test")
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0] != "gemini-1.5-pro" || models[1] != "gemini-1.5-flash" {
		t.Fatalf("unexpected models: %v", models)
	}
}
