// Package quota implements admission control over the credential ledger:
// usable-key selection, usage recording, and cooldown transitions.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/llmhub-dev/llmhub/internal/models"
	"gorm.io/gorm"
)

// DailyResetWindow is the accounting window after which used_today resets.
const DailyResetWindow = 24 * time.Hour

// DefaultCooldown is applied when no explicit duration is given, typically
// after an upstream rate-limit signal.
const DefaultCooldown = 5 * time.Minute

// ErrNoUsableKey indicates no credential for the provider passed admission.
var ErrNoUsableKey = errors.New("quota: no usable key")

// Service performs admission decisions and ledger mutations. All counter
// updates go through atomic SQL expressions, never read-modify-write.
type Service struct {
	db *gorm.DB
}

// NewService constructs a quota service backed by GORM.
func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// UsableKey returns the first eligible credential for a provider in
// ascending ID order, or ErrNoUsableKey when none qualifies.
//
// Eligibility requires the cooldown to have lapsed and either an unlimited
// daily quota (0) or headroom left in the current window. The lazy daily
// reset is applied before the quota check: any key whose window elapsed has
// used_today zeroed with a conditional UPDATE, so concurrent callers at the
// window boundary reset it exactly once.
func (s *Service) UsableKey(ctx context.Context, provider string) (*models.ProviderKey, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("quota: nil service")
	}

	var keys []models.ProviderKey
	if errFind := s.db.WithContext(ctx).
		Where("provider = ? AND active = ?", provider, true).
		Order("id ASC").
		Find(&keys).Error; errFind != nil {
		return nil, fmt.Errorf("quota: load keys for %s: %w", provider, errFind)
	}

	now := time.Now().UTC()
	for i := range keys {
		key := &keys[i]
		if now.Sub(key.LastReset) >= DailyResetWindow {
			if errReset := s.resetDailyWindow(ctx, key, now); errReset != nil {
				return nil, errReset
			}
		}

		if key.CooldownUntil != nil && key.CooldownUntil.After(now) {
			continue
		}
		if key.DailyQuota > 0 && key.UsedToday >= key.DailyQuota {
			continue
		}
		return key, nil
	}
	return nil, ErrNoUsableKey
}

// resetDailyWindow zeroes the usage counter for a key whose window elapsed.
// The UPDATE is guarded on last_reset so a concurrent reset wins harmlessly;
// the loser re-reads the row to observe the fresh counter.
func (s *Service) resetDailyWindow(ctx context.Context, key *models.ProviderKey, now time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.ProviderKey{}).
		Where("id = ? AND last_reset <= ?", key.ID, now.Add(-DailyResetWindow)).
		Updates(map[string]any{
			"used_today": 0,
			"last_reset": now,
		})
	if res.Error != nil {
		return fmt.Errorf("quota: reset key %d: %w", key.ID, res.Error)
	}
	if res.RowsAffected > 0 {
		key.UsedToday = 0
		key.LastReset = now
		return nil
	}

	var fresh models.ProviderKey
	if errTake := s.db.WithContext(ctx).
		Where("id = ?", key.ID).
		Take(&fresh).Error; errTake != nil {
		return fmt.Errorf("quota: reload key %d: %w", key.ID, errTake)
	}
	*key = fresh
	return nil
}

// RecordUsage appends one immutable usage log row and atomically adds the
// token sum to the credential's daily counter.
func (s *Service) RecordUsage(ctx context.Context, keyID uint64, model string, promptTokens, completionTokens int) error {
	if s == nil || s.db == nil {
		return errors.New("quota: nil service")
	}

	total := int64(promptTokens) + int64(completionTokens)
	row := models.UsageLog{
		ProviderKeyID:    keyID,
		Model:            model,
		PromptTokens:     int64(promptTokens),
		CompletionTokens: int64(completionTokens),
		TotalTokens:      total,
		CreatedAt:        time.Now().UTC(),
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&row).Error; errCreate != nil {
			return fmt.Errorf("quota: append usage log: %w", errCreate)
		}
		if errUpdate := tx.Model(&models.ProviderKey{}).
			Where("id = ?", keyID).
			Update("used_today", gorm.Expr("used_today + ?", total)).Error; errUpdate != nil {
			return fmt.Errorf("quota: bump used_today for key %d: %w", keyID, errUpdate)
		}
		return nil
	})
}

// SetCooldown suspends a credential until now plus the given duration.
// A non-positive duration falls back to DefaultCooldown. Cooldowns lift by
// time comparison; nothing ever clears the column explicitly.
func (s *Service) SetCooldown(ctx context.Context, keyID uint64, duration time.Duration) error {
	if s == nil || s.db == nil {
		return errors.New("quota: nil service")
	}
	if duration <= 0 {
		duration = DefaultCooldown
	}
	until := time.Now().UTC().Add(duration)
	if errUpdate := s.db.WithContext(ctx).
		Model(&models.ProviderKey{}).
		Where("id = ?", keyID).
		Update("cooldown_until", until).Error; errUpdate != nil {
		return fmt.Errorf("quota: cooldown key %d: %w", keyID, errUpdate)
	}
	return nil
}
