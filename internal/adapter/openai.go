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

// OpenAICompat serves every vendor that speaks the OpenAI chat-completions
// wire format. Vendors differ only in name, base URL, and model map.
type OpenAICompat struct {
	name         string
	baseURL      string
	modelsURL    string
	modelMap     map[string]string
	defaultModel string
	client       *http.Client
}

// OpenAICompatConfig parameterizes an OpenAI-compatible vendor.
type OpenAICompatConfig struct {
	Name         string            // Canonical provider name.
	BaseURL      string            // Chat completions endpoint.
	ModelsURL    string            // Model listing endpoint; optional.
	ModelMap     map[string]string // Logical tier to vendor model.
	DefaultModel string            // Fallback for unmapped tiers.
}

// NewOpenAICompat constructs an OpenAI-compatible adapter.
func NewOpenAICompat(cfg OpenAICompatConfig) *OpenAICompat {
	return &OpenAICompat{
		name:         cfg.Name,
		baseURL:      cfg.BaseURL,
		modelsURL:    cfg.ModelsURL,
		modelMap:     cfg.ModelMap,
		defaultModel: cfg.DefaultModel,
		client:       newHTTPClient(),
	}
}

// Name returns the canonical provider name.
func (a *OpenAICompat) Name() string { return a.name }

// openAIChatRequest is the OpenAI chat completions request body.
type openAIChatRequest struct {
	Model       string               `json:"model"`
	Messages    []schema.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Stream      bool                 `json:"stream"`
}

// openAIChatResponse is the OpenAI chat completions response body.
type openAIChatResponse struct {
	ID      string `json:"id"`
	Created int64  `json:"created"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ChatCompletion sends the request in OpenAI wire format. Messages pass
// through verbatim as role/content pairs.
func (a *OpenAICompat) ChatCompletion(ctx context.Context, req *schema.ChatRequest, secret string) (*schema.ChatResponse, error) {
	payload := openAIChatRequest{
		Model:       resolveModel(a.modelMap, a.defaultModel, req.Tier),
		Messages:    req.Messages,
		Temperature: req.TemperatureOrDefault(),
		MaxTokens:   req.MaxTokensOrDefault(),
		Stream:      req.Stream,
	}
	body, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return nil, fmt.Errorf("adapter: %s: marshal request: %w", a.name, errMarshal)
	}

	headers := map[string]string{"Authorization": "Bearer " + secret}
	respBody, errPost := postJSON(ctx, a.client, a.name, a.baseURL, headers, body)
	if errPost != nil {
		return nil, errPost
	}

	var vendor openAIChatResponse
	if errUnmarshal := json.Unmarshal(respBody, &vendor); errUnmarshal != nil {
		return nil, fmt.Errorf("adapter: %s: decode response: %w", a.name, errUnmarshal)
	}
	return a.normalize(&vendor, req.Tier), nil
}

// normalize maps the vendor response onto the unified schema. Total tokens
// are recomputed as the sum rather than trusting the vendor-reported total.
func (a *OpenAICompat) normalize(vendor *openAIChatResponse, tier string) *schema.ChatResponse {
	choices := make([]schema.Choice, 0, len(vendor.Choices))
	for _, c := range vendor.Choices {
		choices = append(choices, schema.Choice{
			Index: c.Index,
			Message: schema.ChatMessage{
				Role:    c.Message.Role,
				Content: c.Message.Content,
			},
			FinishReason: c.FinishReason,
		})
	}

	id := vendor.ID
	if id == "" {
		id = a.name + "-" + uuid.NewString()
	}
	created := vendor.Created
	if created == 0 {
		created = time.Now().Unix()
	}

	return &schema.ChatResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   tier,
		Choices: choices,
		Usage: schema.Usage{
			PromptTokens:     vendor.Usage.PromptTokens,
			CompletionTokens: vendor.Usage.CompletionTokens,
			TotalTokens:      vendor.Usage.PromptTokens + vendor.Usage.CompletionTokens,
		},
	}
}

// ListModels queries the vendor model listing endpoint when configured.
func (a *OpenAICompat) ListModels(ctx context.Context, secret string) ([]string, error) {
	if a.modelsURL == "" {
		models := make([]string, 0, len(a.modelMap))
		seen := map[string]struct{}{}
		for _, model := range a.modelMap {
			if _, ok := seen[model]; ok {
				continue
			}
			seen[model] = struct{}{}
			models = append(models, model)
		}
		return models, nil
	}

	headers := map[string]string{"Authorization": "Bearer " + secret}
	body, errGet := getJSON(ctx, a.client, a.name, a.modelsURL, headers)
	if errGet != nil {
		return nil, errGet
	}

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if errUnmarshal := json.Unmarshal(body, &listing); errUnmarshal != nil {
		return nil, fmt.Errorf("adapter: %s: decode model list: %w", a.name, errUnmarshal)
	}
	models := make([]string, 0, len(listing.Data))
	for _, entry := range listing.Data {
		models = append(models, entry.ID)
	}
	return models, nil
}

// QuotaInfo has no OpenAI-compatible endpoint; a placeholder is returned.
func (a *OpenAICompat) QuotaInfo(ctx context.Context, secret string) (map[string]any, error) {
	return map[string]any{"info": "quota info not exposed by provider API"}, nil
}
