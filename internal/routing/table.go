// Package routing resolves a logical tier to an ordered provider list and
// drives the sequential failover loop across it.
package routing

import "github.com/llmhub-dev/llmhub/internal/schema"

// Table maps a logical tier to its provider fallback priority. The mapping
// is static for the lifetime of the process; priority is the slice order.
type Table map[string][]string

// Providers returns the ordered provider list for a tier. Unknown tiers
// resolve to nil.
func (t Table) Providers(tier string) []string {
	return t[tier]
}

// DefaultTable returns the built-in tier routing priorities.
func DefaultTable() Table {
	return Table{
		schema.TierSmart: {"openai", "anthropic", "gemini", "mistral", "perplexity"},
		schema.TierFast:  {"groq", "openai", "gemini", "mistral", "together"},
		schema.TierCheap: {"deepseek", "groq", "gemini", "mistral", "together"},
		schema.TierAny: {
			"openai", "gemini", "groq", "anthropic", "deepseek", "mistral",
			"perplexity", "together", "openrouter", "cohere", "xai",
		},
	}
}
