package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is a savings target. Goals are independent of ledger entries.
type Goal struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Owner        string          `gorm:"column:username;size:64;index;not null" json:"username"`
	Name         string          `gorm:"size:64;not null" json:"name"`
	TargetAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"target_amount"`
	SavedAmount  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"saved_amount"`
	Deadline     time.Time       `json:"deadline"`
	CreatedAt    time.Time       `json:"created_at"`
}
