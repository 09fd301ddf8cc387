// Package adapter translates the unified chat schema to and from each
// upstream provider's wire format. Every vendor implements the same
// capability contract; callers never see a vendor payload.
package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/llmhub-dev/llmhub/internal/schema"
)

// defaultHTTPTimeout bounds a single upstream call.
const defaultHTTPTimeout = 30 * time.Second

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 4 << 20

// Adapter is the uniform capability contract implemented per vendor.
type Adapter interface {
	// Name returns the canonical provider name.
	Name() string
	// ChatCompletion sends a normalized request using the given secret and
	// returns the normalized response. It fails with *TransportError on
	// network problems and *ProviderError on non-2xx upstream responses.
	ChatCompletion(ctx context.Context, req *schema.ChatRequest, secret string) (*schema.ChatResponse, error)
	// ListModels returns model identifiers offered by the provider.
	// Best effort: some vendors return a static list.
	ListModels(ctx context.Context, secret string) ([]string, error)
	// QuotaInfo returns an opaque quota payload from the provider, or a
	// placeholder when the vendor has no such endpoint.
	QuotaInfo(ctx context.Context, secret string) (map[string]any, error)
}

// TransportError indicates the provider could not be reached; timeouts
// included. The routing engine treats it as a soft failure.
type TransportError struct {
	Provider string // Provider the call targeted.
	Err      error  // Underlying transport failure.
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("adapter: %s: transport: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError indicates a non-2xx upstream response.
type ProviderError struct {
	Provider string // Provider that answered.
	Status   int    // HTTP status code.
	Body     string // Raw upstream body, for logs only; never surfaced to callers.
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("adapter: %s: upstream status %d", e.Provider, e.Status)
}

// IsRateLimited reports whether the upstream signalled a rate limit.
func (e *ProviderError) IsRateLimited() bool { return e.Status == http.StatusTooManyRequests }

// newHTTPClient builds the shared per-adapter HTTP client.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// postJSON performs a POST and returns the raw body, classifying failures
// into the adapter error taxonomy.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, payload []byte) ([]byte, error) {
	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if errReq != nil {
		return nil, fmt.Errorf("adapter: %s: build request: %w", provider, errReq)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	resp, errDo := client.Do(httpReq)
	if errDo != nil {
		return nil, &TransportError{Provider: provider, Err: errDo}
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if errRead != nil {
		return nil, &TransportError{Provider: provider, Err: errRead}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{Provider: provider, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// getJSON performs a GET with the same error classification as postJSON.
func getJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string) ([]byte, error) {
	httpReq, errReq := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if errReq != nil {
		return nil, fmt.Errorf("adapter: %s: build request: %w", provider, errReq)
	}
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	resp, errDo := client.Do(httpReq)
	if errDo != nil {
		return nil, &TransportError{Provider: provider, Err: errDo}
	}
	defer func() { _ = resp.Body.Close() }()

	body, errRead := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if errRead != nil {
		return nil, &TransportError{Provider: provider, Err: errRead}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{Provider: provider, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// resolveModel maps a logical tier to the vendor model, falling back to the
// adapter default for unknown tiers. Unknown tiers are never an error here.
func resolveModel(modelMap map[string]string, fallback, tier string) string {
	if model, ok := modelMap[tier]; ok {
		return model
	}
	return fallback
}
