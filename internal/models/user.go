package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskAppetite is the user's declared tolerance for investment risk.
type RiskAppetite string

const (
	RiskLow      RiskAppetite = "Low"
	RiskModerate RiskAppetite = "Moderate"
	RiskHigh     RiskAppetite = "High"
)

// ParseRiskAppetite accepts the canonical spelling in any case.
func ParseRiskAppetite(s string) (RiskAppetite, bool) {
	for _, r := range []RiskAppetite{RiskLow, RiskModerate, RiskHigh} {
		if equalFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// User is the registered account plus its profile. Username is the only
// identity key; DisplayName is presentation only.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:64;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	DisplayName  string `gorm:"size:64"`

	Age            *int
	RiskAppetite   RiskAppetite        `gorm:"size:16"`
	InvestmentPlan string              `gorm:"size:128"`
	MonthlyBudget  decimal.NullDecimal `gorm:"type:decimal(20,2)"`

	FailedLoginAttempts int        `gorm:"default:0"` // consecutive failures
	LockedUntil         *time.Time `gorm:"index"`
	LastLoginAt         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
