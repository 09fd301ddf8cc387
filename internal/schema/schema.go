// Package schema defines the unified chat-completion data model that every
// provider adapter normalizes to and from.
package schema

import "strings"

// Logical tiers selectable by callers. A tier picks a provider priority
// list, never a concrete vendor model.
const (
	TierSmart = "smart"
	TierFast  = "fast"
	TierCheap = "cheap"
	TierAny   = "any"
)

// Message roles understood by the unified schema.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request defaults applied when the caller omits a field.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 512
)

// KnownTier reports whether the given tier belongs to the closed tier set.
func KnownTier(tier string) bool {
	switch strings.TrimSpace(tier) {
	case TierSmart, TierFast, TierCheap, TierAny:
		return true
	default:
		return false
	}
}

// ChatMessage is a single conversation turn. Order within a request is
// semantically meaningful; the last message is the current turn.
type ChatMessage struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest is the normalized inbound chat-completion request.
type ChatRequest struct {
	Tier        string        `json:"model" binding:"required"`
	Messages    []ChatMessage `json:"messages" binding:"required,min=1"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// TemperatureOrDefault returns the request temperature or the default.
func (r *ChatRequest) TemperatureOrDefault() float64 {
	if r.Temperature == nil {
		return DefaultTemperature
	}
	return *r.Temperature
}

// MaxTokensOrDefault returns the requested token cap or the default.
func (r *ChatRequest) MaxTokensOrDefault() int {
	if r.MaxTokens == nil || *r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return *r.MaxTokens
}

// Choice is one normalized completion candidate.
type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// Usage carries normalized token accounting. TotalTokens is always the sum
// of PromptTokens and CompletionTokens regardless of what the vendor reports.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the normalized completion returned to callers. Model echoes
// the logical tier, not the concrete vendor model.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}
