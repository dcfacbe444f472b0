package ledger

import (
	"context"
	"fmt"
	"slices"

	"finora/internal/models"

	"gorm.io/gorm"
)

// GormBackend keeps the ledger in the ledger_entries table. Save rewrites
// the table inside one transaction.
type GormBackend struct {
	db *gorm.DB
}

func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db}
}

func (b *GormBackend) Load(ctx context.Context) (LoadResult, error) {
	var entries []models.Entry
	if err := b.db.WithContext(ctx).Order("id ASC").Find(&entries).Error; err != nil {
		return LoadResult{}, fmt.Errorf("query entries: %w", err)
	}
	for i := range entries {
		entries[i].Date = civilDay(entries[i].Date)
	}
	return LoadResult{Entries: entries}, nil
}

func (b *GormBackend) Save(ctx context.Context, entries []models.Entry) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Entry{}).Error; err != nil {
			return fmt.Errorf("clear entries: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(slices.Clone(entries), 200).Error; err != nil {
			return fmt.Errorf("insert entries: %w", err)
		}
		return nil
	})
}
