// Package usage reads the append-only consumption ledger for the admin
// surface: raw log listings and aggregated statistics.
package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/llmhub-dev/llmhub/internal/models"
	"gorm.io/gorm"
)

// Listing page size bounds.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Reporter answers read queries over usage_logs. It never mutates the
// ledger.
type Reporter struct {
	db *gorm.DB
}

// NewReporter constructs a Reporter backed by GORM.
func NewReporter(db *gorm.DB) *Reporter { return &Reporter{db: db} }

// LogFilter narrows a log listing.
type LogFilter struct {
	Provider string // Filter by provider via the owning key; empty matches all.
	KeyID    uint64 // Filter by key ID; zero matches all.
	Model    string // Filter by logical tier; empty matches all.
	Limit    int    // Page size, clamped to MaxPageSize.
	Offset   int    // Rows to skip.
}

// ListLogs returns the newest usage rows matching the filter plus the total
// match count for pagination.
func (r *Reporter) ListLogs(ctx context.Context, filter LogFilter) ([]models.UsageLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.UsageLog{})
	if provider := strings.TrimSpace(filter.Provider); provider != "" {
		query = query.Where(
			"provider_key_id IN (?)",
			r.db.Model(&models.ProviderKey{}).Select("id").Where("provider = ?", provider),
		)
	}
	if filter.KeyID != 0 {
		query = query.Where("provider_key_id = ?", filter.KeyID)
	}
	if model := strings.TrimSpace(filter.Model); model != "" {
		query = query.Where("model = ?", model)
	}

	var total int64
	if errCount := query.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("usage: count logs: %w", errCount)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var logs []models.UsageLog
	if errFind := query.Order("id DESC").Limit(limit).Offset(offset).Find(&logs).Error; errFind != nil {
		return nil, 0, fmt.Errorf("usage: list logs: %w", errFind)
	}
	return logs, total, nil
}

// ProviderStat aggregates token consumption for one provider.
type ProviderStat struct {
	Provider         string `json:"provider" gorm:"column:provider"`
	Requests         int64  `json:"requests" gorm:"column:requests"`
	PromptTokens     int64  `json:"prompt_tokens" gorm:"column:prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens" gorm:"column:completion_tokens"`
	TotalTokens      int64  `json:"total_tokens" gorm:"column:total_tokens"`
}

// TierStat aggregates token consumption for one logical tier.
type TierStat struct {
	Tier        string `json:"tier" gorm:"column:model"`
	Requests    int64  `json:"requests" gorm:"column:requests"`
	TotalTokens int64  `json:"total_tokens" gorm:"column:total_tokens"`
}

// Summary is the aggregated statistics payload for the dashboard.
type Summary struct {
	TotalRequests int64          `json:"total_requests"`
	TotalTokens   int64          `json:"total_tokens"`
	TokensLast24h int64          `json:"tokens_last_24h"`
	ByProvider    []ProviderStat `json:"by_provider"`
	ByTier        []TierStat     `json:"by_tier"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// Stats computes the full dashboard summary.
func (r *Reporter) Stats(ctx context.Context) (*Summary, error) {
	summary := Summary{GeneratedAt: time.Now().UTC()}

	var totals struct {
		Requests    int64 `gorm:"column:requests"`
		TotalTokens int64 `gorm:"column:total_tokens"`
	}
	if errTotals := r.db.WithContext(ctx).Model(&models.UsageLog{}).
		Select("COUNT(*) AS requests, COALESCE(SUM(total_tokens), 0) AS total_tokens").
		Scan(&totals).Error; errTotals != nil {
		return nil, fmt.Errorf("usage: total stats: %w", errTotals)
	}
	summary.TotalRequests = totals.Requests
	summary.TotalTokens = totals.TotalTokens

	since := time.Now().UTC().Add(-24 * time.Hour)
	if errRecent := r.db.WithContext(ctx).Model(&models.UsageLog{}).
		Where("created_at >= ?", since).
		Select("COALESCE(SUM(total_tokens), 0)").
		Scan(&summary.TokensLast24h).Error; errRecent != nil {
		return nil, fmt.Errorf("usage: recent stats: %w", errRecent)
	}

	if errProvider := r.db.WithContext(ctx).Model(&models.UsageLog{}).
		Select(`
			provider_keys.provider AS provider,
			COUNT(*) AS requests,
			COALESCE(SUM(usage_logs.prompt_tokens), 0) AS prompt_tokens,
			COALESCE(SUM(usage_logs.completion_tokens), 0) AS completion_tokens,
			COALESCE(SUM(usage_logs.total_tokens), 0) AS total_tokens
		`).
		Joins("JOIN provider_keys ON provider_keys.id = usage_logs.provider_key_id").
		Group("provider_keys.provider").
		Order("total_tokens DESC").
		Scan(&summary.ByProvider).Error; errProvider != nil {
		return nil, fmt.Errorf("usage: provider stats: %w", errProvider)
	}

	if errTier := r.db.WithContext(ctx).Model(&models.UsageLog{}).
		Select("model, COUNT(*) AS requests, COALESCE(SUM(total_tokens), 0) AS total_tokens").
		Group("model").
		Order("total_tokens DESC").
		Scan(&summary.ByTier).Error; errTier != nil {
		return nil, fmt.Errorf("usage: tier stats: %w", errTier)
	}

	return &summary, nil
}
