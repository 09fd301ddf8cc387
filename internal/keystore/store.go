// Package keystore manages the pool of upstream provider credentials that
// the admin surface edits and the routing engine draws from.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/llmhub-dev/llmhub/internal/models"
	"github.com/llmhub-dev/llmhub/internal/util"
	"gorm.io/gorm"
)

// ErrNotFound indicates no key row exists for the given ID.
var ErrNotFound = errors.New("keystore: key not found")

// ErrInvalidKey indicates a create or update with missing required fields.
var ErrInvalidKey = errors.New("keystore: provider and key value are required")

// Store provides CRUD access to provider keys.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store backed by GORM.
func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// CreateParams describes a new provider key.
type CreateParams struct {
	Provider   string // Canonical provider name.
	Name       string // Human label shown in listings.
	KeyValue   string // The upstream secret.
	DailyQuota int64  // Daily token budget, zero means unlimited.
}

// Create inserts a new key. Keys start active with a fresh reset window.
func (s *Store) Create(ctx context.Context, params CreateParams) (*models.ProviderKey, error) {
	provider := strings.TrimSpace(params.Provider)
	secret := strings.TrimSpace(params.KeyValue)
	if provider == "" || secret == "" {
		return nil, ErrInvalidKey
	}
	if params.DailyQuota < 0 {
		return nil, fmt.Errorf("keystore: negative daily quota %d", params.DailyQuota)
	}

	key := models.ProviderKey{
		Provider:   provider,
		Name:       strings.TrimSpace(params.Name),
		KeyValue:   secret,
		Active:     true,
		DailyQuota: params.DailyQuota,
		LastReset:  time.Now().UTC(),
	}
	if errCreate := s.db.WithContext(ctx).Create(&key).Error; errCreate != nil {
		return nil, fmt.Errorf("keystore: create key: %w", errCreate)
	}
	return &key, nil
}

// Get loads one key by ID.
func (s *Store) Get(ctx context.Context, id uint64) (*models.ProviderKey, error) {
	var key models.ProviderKey
	err := s.db.WithContext(ctx).First(&key, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("keystore: load key %d: %w", id, err)
	}
	return &key, nil
}

// List returns all keys ordered by ID, optionally filtered to one provider.
func (s *Store) List(ctx context.Context, provider string) ([]models.ProviderKey, error) {
	query := s.db.WithContext(ctx).Model(&models.ProviderKey{}).Order("id ASC")
	if provider = strings.TrimSpace(provider); provider != "" {
		query = query.Where("provider = ?", provider)
	}
	var keys []models.ProviderKey
	if errFind := query.Find(&keys).Error; errFind != nil {
		return nil, fmt.Errorf("keystore: list keys: %w", errFind)
	}
	return keys, nil
}

// UpdateParams carries partial key updates; nil fields are left untouched.
type UpdateParams struct {
	Name       *string
	KeyValue   *string
	Active     *bool
	DailyQuota *int64
}

// Update applies a partial update and returns the refreshed row.
func (s *Store) Update(ctx context.Context, id uint64, params UpdateParams) (*models.ProviderKey, error) {
	updates := map[string]any{}
	if params.Name != nil {
		updates["name"] = strings.TrimSpace(*params.Name)
	}
	if params.KeyValue != nil {
		secret := strings.TrimSpace(*params.KeyValue)
		if secret == "" {
			return nil, ErrInvalidKey
		}
		updates["key_value"] = secret
	}
	if params.Active != nil {
		updates["active"] = *params.Active
	}
	if params.DailyQuota != nil {
		if *params.DailyQuota < 0 {
			return nil, fmt.Errorf("keystore: negative daily quota %d", *params.DailyQuota)
		}
		updates["daily_quota"] = *params.DailyQuota
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	result := s.db.WithContext(ctx).Model(&models.ProviderKey{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("keystore: update key %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete removes a key. Usage rows referencing it are kept.
func (s *Store) Delete(ctx context.Context, id uint64) error {
	result := s.db.WithContext(ctx).Delete(&models.ProviderKey{}, id)
	if result.Error != nil {
		return fmt.Errorf("keystore: delete key %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCooldown lifts a key's cooldown immediately.
func (s *Store) ClearCooldown(ctx context.Context, id uint64) error {
	result := s.db.WithContext(ctx).Model(&models.ProviderKey{}).
		Where("id = ?", id).
		Update("cooldown_until", nil)
	if result.Error != nil {
		return fmt.Errorf("keystore: clear cooldown for key %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// KeyView is the externally visible representation of a key. The secret is
// always masked.
type KeyView struct {
	ID            uint64         `json:"id"`
	Provider      string         `json:"provider"`
	Name          string         `json:"name"`
	MaskedKey     string         `json:"masked_key"`
	Active        bool           `json:"active"`
	CooldownUntil *time.Time     `json:"cooldown_until,omitempty"`
	DailyQuota    int64          `json:"daily_quota"`
	UsedToday     int64          `json:"used_today"`
	LastReset     time.Time      `json:"last_reset"`
	QuotaInfo     map[string]any `json:"quota_info,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// View converts a key row to its masked external form.
func View(key *models.ProviderKey) KeyView {
	return KeyView{
		ID:            key.ID,
		Provider:      key.Provider,
		Name:          key.Name,
		MaskedKey:     util.HideAPIKey(key.KeyValue),
		Active:        key.Active,
		CooldownUntil: key.CooldownUntil,
		DailyQuota:    key.DailyQuota,
		UsedToday:     key.UsedToday,
		LastReset:     key.LastReset,
		QuotaInfo:     key.QuotaSnapshot(),
		CreatedAt:     key.CreatedAt,
		UpdatedAt:     key.UpdatedAt,
	}
}

// Views converts a slice of key rows.
func Views(keys []models.ProviderKey) []KeyView {
	views := make([]KeyView, 0, len(keys))
	for i := range keys {
		views = append(views, View(&keys[i]))
	}
	return views
}
