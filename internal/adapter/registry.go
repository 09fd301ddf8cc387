package adapter

import (
	"sort"

	"github.com/llmhub-dev/llmhub/internal/schema"
)

// Registry is an immutable provider-name-to-adapter mapping built once at
// startup. Lookups for unconfigured providers miss instead of failing hard.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry from the given adapters. Later duplicates of
// the same provider name win; nil adapters are skipped.
func NewRegistry(adapters ...Adapter) *Registry {
	byName := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		if a == nil {
			continue
		}
		byName[a.Name()] = a
	}
	return &Registry{adapters: byName}
}

// Lookup returns the adapter for a provider name.
func (r *Registry) Lookup(provider string) (Adapter, bool) {
	a, ok := r.adapters[provider]
	return a, ok
}

// Providers returns the configured provider names in sorted order.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry wires every supported vendor.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewOpenAICompat(OpenAICompatConfig{
			Name:      "openai",
			BaseURL:   "https://api.openai.com/v1/chat/completions",
			ModelsURL: "https://api.openai.com/v1/models",
			ModelMap: map[string]string{
				schema.TierSmart: "gpt-4-turbo",
				schema.TierFast:  "gpt-3.5-turbo",
				schema.TierCheap: "gpt-3.5-turbo",
				schema.TierAny:   "gpt-3.5-turbo",
			},
			DefaultModel: "gpt-3.5-turbo",
		}),
		NewOpenAICompat(OpenAICompatConfig{
			Name:    "deepseek",
			BaseURL: "https://api.deepseek.com/chat/completions",
			ModelMap: map[string]string{
				schema.TierSmart: "deepseek-chat",
				schema.TierFast:  "deepseek-chat",
				schema.TierCheap: "deepseek-chat",
				schema.TierAny:   "deepseek-chat",
			},
			DefaultModel: "deepseek-chat",
		}),
		NewOpenAICompat(OpenAICompatConfig{
			Name:      "groq",
			BaseURL:   "https://api.groq.com/openai/v1/chat/completions",
			ModelsURL: "https://api.groq.com/openai/v1/models",
			ModelMap: map[string]string{
				schema.TierSmart: "llama-3.1-70b-versatile",
				schema.TierFast:  "llama-3.1-8b-instant",
				schema.TierCheap: "llama-3.1-8b-instant",
				schema.TierAny:   "llama-3.1-8b-instant",
			},
			DefaultModel: "llama-3.1-8b-instant",
		}),
		NewOpenAICompat(OpenAICompatConfig{
			Name:      "mistral",
			BaseURL:   "https://api.mistral.ai/v1/chat/completions",
			ModelsURL: "https://api.mistral.ai/v1/models",
			ModelMap: map[string]string{
				schema.TierSmart: "mistral-large-latest",
				schema.TierFast:  "mistral-small-latest",
				schema.TierCheap: "open-mistral-7b",
				schema.TierAny:   "mistral-medium-latest",
			},
			DefaultModel: "mistral-medium-latest",
		}),
		NewOpenAICompat(OpenAICompatConfig{
			Name:    "perplexity",
			BaseURL: "https://api.perplexity.ai/chat/completions",
			ModelMap: map[string]string{
				schema.TierSmart: "sonar-reasoning-pro",
				schema.TierFast:  "sonar",
				schema.TierCheap: "sonar",
				schema.TierAny:   "sonar",
			},
			DefaultModel: "sonar",
		}),
		NewOpenAICompat(OpenAICompatConfig{
			Name:      "together",
			BaseURL:   "https://api.together.xyz/v1/chat/completions",
			ModelsURL: "https://api.together.xyz/v1/models",
			ModelMap: map[string]string{
				schema.TierSmart: "meta-llama/Llama-3-70b-chat-hf",
				schema.TierFast:  "meta-llama/Llama-3-8b-chat-hf",
				schema.TierCheap: "mistralai/Mistral-7B-Instruct-v0.1",
				schema.TierAny:   "meta-llama/Llama-3-8b-chat-hf",
			},
			DefaultModel: "meta-llama/Llama-3-8b-chat-hf",
		}),
		NewOpenAICompat(OpenAICompatConfig{
			Name:      "openrouter",
			BaseURL:   "https://openrouter.ai/api/v1/chat/completions",
			ModelsURL: "https://openrouter.ai/api/v1/models",
			ModelMap: map[string]string{
				schema.TierSmart: "openai/gpt-4o",
				schema.TierFast:  "google/gemini-flash-1.5",
				schema.TierCheap: "meta-llama/llama-3-8b-instruct",
				schema.TierAny:   "anthropic/claude-3-haiku",
			},
			DefaultModel: "google/gemini-flash-1.5",
		}),
		NewOpenAICompat(OpenAICompatConfig{
			Name:      "xai",
			BaseURL:   "https://api.x.ai/v1/chat/completions",
			ModelsURL: "https://api.x.ai/v1/models",
			ModelMap: map[string]string{
				schema.TierSmart: "grok-beta",
				schema.TierFast:  "grok-beta",
				schema.TierCheap: "grok-beta",
				schema.TierAny:   "grok-beta",
			},
			DefaultModel: "grok-beta",
		}),
		NewAnthropic(),
		NewGemini(),
		NewCohere(),
	)
}
