package db

import (
	"fmt"

	"github.com/llmhub-dev/llmhub/internal/models"
	"gorm.io/gorm"
)

// Migrate applies schema migrations for all gateway tables.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.ProviderKey{},
		&models.UsageLog{},
		&models.Admin{},
	)
}
