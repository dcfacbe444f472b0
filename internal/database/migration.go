package database

import (
	"fmt"

	"finora/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
// ledger_entries is read only by the sql ledger backend.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Entry{},
		&models.Goal{},
		&models.Session{},
		&models.AuditLog{},
		&models.Backup{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
