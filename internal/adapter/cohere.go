package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/llmhub-dev/llmhub/internal/schema"
)

// cohereBaseURL is the Cohere chat endpoint.
const cohereBaseURL = "https://api.cohere.ai/v1/chat"

// Cohere adapts the turn-separated Cohere chat API. Every message except the
// last becomes a chat_history entry with USER/CHATBOT role tokens; the last
// message travels as the current turn.
type Cohere struct {
	baseURL string
	client  *http.Client
}

// cohereModelMap maps logical tiers to Cohere models.
var cohereModelMap = map[string]string{
	schema.TierSmart: "command-r-plus",
	schema.TierFast:  "command-r",
	schema.TierCheap: "command-light",
	schema.TierAny:   "command",
}

// cohereDefaultModel serves unmapped tiers.
const cohereDefaultModel = "command"

// NewCohere constructs the Cohere adapter.
func NewCohere() *Cohere {
	return &Cohere{baseURL: cohereBaseURL, client: newHTTPClient()}
}

// Name returns the canonical provider name.
func (a *Cohere) Name() string { return "cohere" }

// cohereHistoryEntry is one prior turn in Cohere format.
type cohereHistoryEntry struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// cohereChatRequest is the Cohere chat request body.
type cohereChatRequest struct {
	Model       string               `json:"model"`
	Message     string               `json:"message"`
	ChatHistory []cohereHistoryEntry `json:"chat_history"`
	Temperature float64              `json:"temperature"`
}

// cohereChatResponse is the Cohere chat response body.
type cohereChatResponse struct {
	GenerationID string `json:"generation_id"`
	Text         string `json:"text"`
	TokenCount   struct {
		PromptTokens   int `json:"prompt_tokens"`
		ResponseTokens int `json:"response_tokens"`
	} `json:"token_count"`
}

// ChatCompletion sends the request in Cohere wire format.
func (a *Cohere) ChatCompletion(ctx context.Context, req *schema.ChatRequest, secret string) (*schema.ChatResponse, error) {
	history := make([]cohereHistoryEntry, 0, len(req.Messages))
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		role := "CHATBOT"
		if msg.Role == schema.RoleUser {
			role = "USER"
		}
		history = append(history, cohereHistoryEntry{Role: role, Message: msg.Content})
	}

	payload := cohereChatRequest{
		Model:       resolveModel(cohereModelMap, cohereDefaultModel, req.Tier),
		Message:     req.Messages[len(req.Messages)-1].Content,
		ChatHistory: history,
		Temperature: req.TemperatureOrDefault(),
	}
	body, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return nil, fmt.Errorf("adapter: cohere: marshal request: %w", errMarshal)
	}

	headers := map[string]string{"Authorization": "Bearer " + secret}
	respBody, errPost := postJSON(ctx, a.client, a.Name(), a.baseURL, headers, body)
	if errPost != nil {
		return nil, errPost
	}

	var vendor cohereChatResponse
	if errUnmarshal := json.Unmarshal(respBody, &vendor); errUnmarshal != nil {
		return nil, fmt.Errorf("adapter: cohere: decode response: %w", errUnmarshal)
	}
	return a.normalize(&vendor, req.Tier), nil
}

// normalize maps the single text field onto one assistant choice.
func (a *Cohere) normalize(vendor *cohereChatResponse, tier string) *schema.ChatResponse {
	id := vendor.GenerationID
	if id == "" {
		id = "cohere-" + uuid.NewString()
	}

	return &schema.ChatResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   tier,
		Choices: []schema.Choice{
			{
				Index: 0,
				Message: schema.ChatMessage{
					Role:    schema.RoleAssistant,
					Content: vendor.Text,
				},
				FinishReason: "complete",
			},
		},
		Usage: schema.Usage{
			PromptTokens:     vendor.TokenCount.PromptTokens,
			CompletionTokens: vendor.TokenCount.ResponseTokens,
			TotalTokens:      vendor.TokenCount.PromptTokens + vendor.TokenCount.ResponseTokens,
		},
	}
}

// ListModels returns the static Cohere model set.
func (a *Cohere) ListModels(ctx context.Context, secret string) ([]string, error) {
	return []string{"command-r-plus", "command-r", "command-light", "command"}, nil
}

// QuotaInfo has no Cohere endpoint; a placeholder is returned.
func (a *Cohere) QuotaInfo(ctx context.Context, secret string) (map[string]any, error) {
	return map[string]any{"info": "quota visible in the Cohere dashboard only"}, nil
}
