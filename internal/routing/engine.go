package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/llmhub-dev/llmhub/internal/adapter"
	"github.com/llmhub-dev/llmhub/internal/models"
	"github.com/llmhub-dev/llmhub/internal/quota"
	"github.com/llmhub-dev/llmhub/internal/schema"
	"github.com/llmhub-dev/llmhub/internal/util"
	log "github.com/sirupsen/logrus"
)

// DefaultAttemptTimeout bounds one provider attempt.
const DefaultAttemptTimeout = 30 * time.Second

// Aggregate failure reason codes.
const (
	// ReasonNoProviders means the tier resolved to an empty provider list.
	ReasonNoProviders = "no_providers_configured"
	// ReasonNoCredentials means no attempted provider had an admitted credential.
	ReasonNoCredentials = "no_usable_credentials"
	// ReasonProviderErrors means every attempted provider returned an error.
	ReasonProviderErrors = "provider_errors"
)

// AggregateError is the only error the engine surfaces to callers: all
// fallback candidates were exhausted without a success.
type AggregateError struct {
	Tier   string // Requested logical tier.
	Reason string // One of the Reason* codes.
	Last   error  // Last observed per-candidate error, when any.
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("routing: tier %q exhausted (%s): %v", e.Tier, e.Reason, e.Last)
	}
	return fmt.Sprintf("routing: tier %q exhausted (%s)", e.Tier, e.Reason)
}

// Unwrap exposes the last per-candidate error.
func (e *AggregateError) Unwrap() error { return e.Last }

// Admitter is the admission-control contract the engine consumes. It is
// satisfied by *quota.Service.
type Admitter interface {
	UsableKey(ctx context.Context, provider string) (*models.ProviderKey, error)
	RecordUsage(ctx context.Context, keyID uint64, model string, promptTokens, completionTokens int) error
	SetCooldown(ctx context.Context, keyID uint64, duration time.Duration) error
}

// Engine dispatches one chat request across the tier's provider priority
// list: strictly sequential, first success wins, soft failures advance.
type Engine struct {
	registry        *adapter.Registry
	admitter        Admitter
	table           Table
	fallbackSecrets map[string]string
	attemptTimeout  time.Duration
}

// Config wires an Engine. FallbackSecrets supplies statically configured
// credentials for providers without a persisted key; usage against them is
// never recorded in the ledger.
type Config struct {
	Registry        *adapter.Registry
	Admitter        Admitter
	Table           Table
	FallbackSecrets map[string]string
	AttemptTimeout  time.Duration
}

// NewEngine constructs a routing engine.
func NewEngine(cfg Config) *Engine {
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	table := cfg.Table
	if table == nil {
		table = DefaultTable()
	}
	return &Engine{
		registry:        cfg.Registry,
		admitter:        cfg.Admitter,
		table:           table,
		fallbackSecrets: cfg.FallbackSecrets,
		attemptTimeout:  timeout,
	}
}

// Route resolves the tier and walks the provider priority list until one
// candidate succeeds. It returns the normalized response of the first
// success, or an *AggregateError once all candidates are exhausted.
func (e *Engine) Route(ctx context.Context, req *schema.ChatRequest) (*schema.ChatResponse, error) {
	providers := e.table.Providers(req.Tier)
	if len(providers) == 0 {
		return nil, &AggregateError{Tier: req.Tier, Reason: ReasonNoProviders}
	}

	var lastErr error
	sawProviderError := false

	for _, provider := range providers {
		if errCtx := ctx.Err(); errCtx != nil {
			// Caller abandoned the request; cease further attempts.
			return nil, errCtx
		}

		a, ok := e.registry.Lookup(provider)
		if !ok {
			log.Debugf("routing: provider %s not registered, skipping", provider)
			continue
		}

		keyID, secret, errAdmit := e.admit(ctx, provider)
		if errAdmit != nil {
			if !errors.Is(errAdmit, quota.ErrNoUsableKey) {
				log.WithError(errAdmit).Warnf("routing: admission check failed for %s", provider)
				lastErr = errAdmit
			} else {
				log.Debugf("routing: no usable credential for %s, skipping", provider)
			}
			continue
		}

		resp, errCall := e.attempt(ctx, a, req, secret)
		if errCall == nil {
			if keyID != 0 {
				if errRecord := e.admitter.RecordUsage(ctx, keyID, req.Tier, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); errRecord != nil {
					// The response is already earned; losing the meter row
					// must not fail the request.
					log.WithError(errRecord).Errorf("routing: record usage for key %d", keyID)
				}
			}
			log.Infof("routing: tier=%s served by %s", req.Tier, provider)
			return resp, nil
		}

		lastErr = errCall
		var provErr *adapter.ProviderError
		switch {
		case errors.As(errCall, &provErr):
			sawProviderError = true
			if provErr.IsRateLimited() && keyID != 0 {
				log.Warnf("routing: %s rate limited, cooling key %d", provider, keyID)
				if errCooldown := e.admitter.SetCooldown(ctx, keyID, 0); errCooldown != nil {
					log.WithError(errCooldown).Errorf("routing: cooldown key %d", keyID)
				}
			} else {
				log.Warnf("routing: %s returned status %d, advancing", provider, provErr.Status)
			}
		default:
			sawProviderError = true
			log.WithError(errCall).Warnf("routing: %s attempt failed, advancing", provider)
		}
	}

	reason := ReasonNoCredentials
	if sawProviderError {
		reason = ReasonProviderErrors
	}
	return nil, &AggregateError{Tier: req.Tier, Reason: reason, Last: lastErr}
}

// admit resolves a credential for the provider: the ledger first, then the
// static fallback secret. A zero key ID marks ledger-less usage.
func (e *Engine) admit(ctx context.Context, provider string) (uint64, string, error) {
	key, errAdmit := e.admitter.UsableKey(ctx, provider)
	if errAdmit == nil {
		return key.ID, key.KeyValue, nil
	}
	if errors.Is(errAdmit, quota.ErrNoUsableKey) {
		if fallback, ok := e.fallbackSecrets[provider]; ok && fallback != "" {
			log.Debugf("routing: using static fallback credential %s for %s", util.HideAPIKey(fallback), provider)
			return 0, fallback, nil
		}
	}
	return 0, "", errAdmit
}

// attempt invokes the adapter under the per-attempt timeout.
func (e *Engine) attempt(ctx context.Context, a adapter.Adapter, req *schema.ChatRequest, secret string) (*schema.ChatResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
	defer cancel()
	return a.ChatCompletion(attemptCtx, req, secret)
}
