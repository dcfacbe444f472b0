package models

import "time"

// Backup points at an encrypted snapshot of one user's ledger and goals.
type Backup struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:64;index;not null"`
	FileName  string `gorm:"size:255;not null"`
	FilePath  string `gorm:"size:1024;not null"`
	Size      int64
	CreatedAt time.Time
}
