package models

import "time"

// UsageLog records token usage for one successful provider call. Rows are
// append-only; nothing in the system updates or deletes them.
type UsageLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ProviderKeyID uint64 `gorm:"not null;index"` // Credential the usage is charged against.

	Model string `gorm:"type:text;not null;index"` // Logical tier the request asked for.

	PromptTokens     int64 `gorm:"not null;default:0"` // Prompt token count.
	CompletionTokens int64 `gorm:"not null;default:0"` // Completion token count.
	TotalTokens      int64 `gorm:"not null;default:0"` // Sum of prompt and completion tokens.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Record timestamp.
}

// TableName overrides the default table name.
func (UsageLog) TableName() string {
	return "usage_logs"
}
