package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/llmhub-dev/llmhub/internal/schema"
)

// geminiBaseURL is the Google AI Studio endpoint root.
const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini adapts the Google AI Studio API. There is no system channel:
// system messages fold into the user role, and every turn is remapped onto
// the binary user/model role scheme. The credential travels as a query
// parameter on a per-model URL.
type Gemini struct {
	baseURL string
	client  *http.Client
}

// geminiModelMap maps logical tiers to Gemini models.
var geminiModelMap = map[string]string{
	schema.TierSmart: "gemini-1.5-pro",
	schema.TierFast:  "gemini-1.5-flash",
	schema.TierCheap: "gemini-1.5-flash",
	schema.TierAny:   "gemini-1.5-flash",
}

// geminiDefaultModel serves unmapped tiers.
const geminiDefaultModel = "gemini-1.5-flash"

// NewGemini constructs the Gemini adapter.
func NewGemini() *Gemini {
	return &Gemini{baseURL: geminiBaseURL, client: newHTTPClient()}
}

// Name returns the canonical provider name.
func (a *Gemini) Name() string { return "gemini" }

// geminiPart is one text part of a content entry.
type geminiPart struct {
	Text string `json:"text"`
}

// geminiContent is one role-tagged content entry.
type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

// geminiChatRequest is the generateContent request body.
type geminiChatRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

// geminiChatResponse is the generateContent response body.
type geminiChatResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// ChatCompletion sends the request in Gemini wire format.
func (a *Gemini) ChatCompletion(ctx context.Context, req *schema.ChatRequest, secret string) (*schema.ChatResponse, error) {
	contents := make([]geminiContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := "model"
		if msg.Role == schema.RoleUser || msg.Role == schema.RoleSystem {
			role = schema.RoleUser
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	payload := geminiChatRequest{Contents: contents}
	payload.GenerationConfig.Temperature = req.TemperatureOrDefault()
	payload.GenerationConfig.MaxOutputTokens = req.MaxTokensOrDefault()

	body, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return nil, fmt.Errorf("adapter: gemini: marshal request: %w", errMarshal)
	}

	model := resolveModel(geminiModelMap, geminiDefaultModel, req.Tier)
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, model, url.QueryEscape(secret))
	respBody, errPost := postJSON(ctx, a.client, a.Name(), endpoint, nil, body)
	if errPost != nil {
		return nil, errPost
	}

	var vendor geminiChatResponse
	if errUnmarshal := json.Unmarshal(respBody, &vendor); errUnmarshal != nil {
		return nil, fmt.Errorf("adapter: gemini: decode response: %w", errUnmarshal)
	}
	return a.normalize(&vendor, req.Tier), nil
}

// normalize turns each candidate into an independent choice with its own
// index and concatenates its parts into one content string.
func (a *Gemini) normalize(vendor *geminiChatResponse, tier string) *schema.ChatResponse {
	choices := make([]schema.Choice, 0, len(vendor.Candidates))
	for i, candidate := range vendor.Candidates {
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
		choices = append(choices, schema.Choice{
			Index: i,
			Message: schema.ChatMessage{
				Role:    schema.RoleAssistant,
				Content: text.String(),
			},
			FinishReason: candidate.FinishReason,
		})
	}

	return &schema.ChatResponse{
		ID:      "gemini-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   tier,
		Choices: choices,
		Usage: schema.Usage{
			PromptTokens:     vendor.UsageMetadata.PromptTokenCount,
			CompletionTokens: vendor.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      vendor.UsageMetadata.PromptTokenCount + vendor.UsageMetadata.CandidatesTokenCount,
		},
	}
}

// ListModels queries the AI Studio model listing endpoint.
func (a *Gemini) ListModels(ctx context.Context, secret string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/models?key=%s", a.baseURL, url.QueryEscape(secret))
	body, errGet := getJSON(ctx, a.client, a.Name(), endpoint, nil)
	if errGet != nil {
		return nil, errGet
	}

	var listing struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if errUnmarshal := json.Unmarshal(body, &listing); errUnmarshal != nil {
		return nil, fmt.Errorf("adapter: gemini: decode model list: %w", errUnmarshal)
	}
	models := make([]string, 0, len(listing.Models))
	for _, entry := range listing.Models {
		name := entry.Name
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		if strings.Contains(name, "gemini") {
			models = append(models, name)
		}
	}
	return models, nil
}

// QuotaInfo has no public Gemini endpoint; a placeholder is returned.
func (a *Gemini) QuotaInfo(ctx context.Context, secret string) (map[string]any, error) {
	return map[string]any{"info": "quota info not available via public API"}, nil
}
