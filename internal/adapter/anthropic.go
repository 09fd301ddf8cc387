package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/llmhub-dev/llmhub/internal/schema"
)

// anthropicBaseURL is the Anthropic messages endpoint.
const anthropicBaseURL = "https://api.anthropic.com/v1/messages"

// anthropicVersion is the fixed protocol version header value.
const anthropicVersion = "2023-06-01"

// Anthropic adapts the system-prompt-separated Anthropic messages API.
// Leading system messages are concatenated into a distinct system field.
type Anthropic struct {
	baseURL string
	client  *http.Client
}

// anthropicModelMap maps logical tiers to Anthropic models.
var anthropicModelMap = map[string]string{
	schema.TierSmart: "claude-3-5-sonnet-20240620",
	schema.TierFast:  "claude-3-haiku-20240307",
	schema.TierCheap: "claude-3-haiku-20240307",
	schema.TierAny:   "claude-3-haiku-20240307",
}

// anthropicDefaultModel serves unmapped tiers.
const anthropicDefaultModel = "claude-3-haiku-20240307"

// NewAnthropic constructs the Anthropic adapter.
func NewAnthropic() *Anthropic {
	return &Anthropic{baseURL: anthropicBaseURL, client: newHTTPClient()}
}

// Name returns the canonical provider name.
func (a *Anthropic) Name() string { return "anthropic" }

// anthropicMessage is one conversation turn in Anthropic format.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicChatRequest is the Anthropic messages request body.
type anthropicChatRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Stream      bool               `json:"stream"`
}

// anthropicChatResponse is the Anthropic messages response body.
type anthropicChatResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ChatCompletion sends the request in Anthropic wire format.
func (a *Anthropic) ChatCompletion(ctx context.Context, req *schema.ChatRequest, secret string) (*schema.ChatResponse, error) {
	var systemParts []string
	messages := make([]anthropicMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == schema.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		role := schema.RoleAssistant
		if msg.Role == schema.RoleUser {
			role = schema.RoleUser
		}
		messages = append(messages, anthropicMessage{Role: role, Content: msg.Content})
	}

	payload := anthropicChatRequest{
		Model:       resolveModel(anthropicModelMap, anthropicDefaultModel, req.Tier),
		System:      strings.TrimSpace(strings.Join(systemParts, "\n")),
		Messages:    messages,
		MaxTokens:   req.MaxTokensOrDefault(),
		Temperature: req.TemperatureOrDefault(),
		Stream:      req.Stream,
	}
	body, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return nil, fmt.Errorf("adapter: anthropic: marshal request: %w", errMarshal)
	}

	headers := map[string]string{
		"x-api-key":         secret,
		"anthropic-version": anthropicVersion,
	}
	respBody, errPost := postJSON(ctx, a.client, a.Name(), a.baseURL, headers, body)
	if errPost != nil {
		return nil, errPost
	}

	var vendor anthropicChatResponse
	if errUnmarshal := json.Unmarshal(respBody, &vendor); errUnmarshal != nil {
		return nil, fmt.Errorf("adapter: anthropic: decode response: %w", errUnmarshal)
	}
	return a.normalize(&vendor, req.Tier), nil
}

// normalize concatenates text content blocks into one assistant choice.
func (a *Anthropic) normalize(vendor *anthropicChatResponse, tier string) *schema.ChatResponse {
	var text strings.Builder
	for _, block := range vendor.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	id := vendor.ID
	if id == "" {
		id = "anthropic-" + uuid.NewString()
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
					Content: text.String(),
				},
				FinishReason: vendor.StopReason,
			},
		},
		Usage: schema.Usage{
			PromptTokens:     vendor.Usage.InputTokens,
			CompletionTokens: vendor.Usage.OutputTokens,
			TotalTokens:      vendor.Usage.InputTokens + vendor.Usage.OutputTokens,
		},
	}
}

// ListModels returns the static Anthropic model set; the public API has no
// listing endpoint for API keys.
func (a *Anthropic) ListModels(ctx context.Context, secret string) ([]string, error) {
	return []string{
		"claude-3-5-sonnet-20240620",
		"claude-3-opus-20240229",
		"claude-3-haiku-20240307",
	}, nil
}

// QuotaInfo has no Anthropic endpoint; a placeholder is returned.
func (a *Anthropic) QuotaInfo(ctx context.Context, secret string) (map[string]any, error) {
	return map[string]any{"info": "quota info not exposed by provider API"}, nil
}
