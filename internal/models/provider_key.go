package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ProviderKey is one upstream credential in the quota ledger. The routing
// core only reads active rows and mutates the quota fields (used_today,
// last_reset, cooldown_until); row lifecycle belongs to the admin surface.
type ProviderKey struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Provider string `gorm:"type:text;not null;index"` // Provider name the key belongs to.
	Name     string `gorm:"type:text"`                // Display name for the key.
	KeyValue string `gorm:"type:text;not null"`       // Opaque secret; encryption at rest happens at the boundary.

	Active        bool       `gorm:"not null;default:true"` // Whether the key may be admitted.
	CooldownUntil *time.Time `gorm:"index"`                 // Admission suspended until this instant when set.

	DailyQuota int64     `gorm:"not null;default:0"`      // Daily token budget; 0 means unlimited.
	UsedToday  int64     `gorm:"not null;default:0"`      // Tokens consumed since last_reset.
	LastReset  time.Time `gorm:"not null"`                // Start of the current 24h accounting window.

	QuotaInfo datatypes.JSON `gorm:"type:jsonb"` // Last opaque quota probe payload from the provider.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (ProviderKey) TableName() string {
	return "provider_keys"
}

// QuotaSnapshot decodes the stored quota probe payload. It returns nil when
// no probe has run yet or the payload does not parse.
func (k *ProviderKey) QuotaSnapshot() map[string]any {
	if len(k.QuotaInfo) == 0 {
		return nil
	}
	var snapshot map[string]any
	if err := json.Unmarshal(k.QuotaInfo, &snapshot); err != nil {
		return nil
	}
	return snapshot
}
