package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind is either Income or Expense.
type EntryKind string

const (
	KindIncome  EntryKind = "Income"
	KindExpense EntryKind = "Expense"
)

// Valid reports whether k is one of the fixed kinds.
func (k EntryKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// ParseEntryKind accepts the canonical spelling in any case.
func ParseEntryKind(s string) (EntryKind, bool) {
	switch {
	case equalFold(s, string(KindIncome)):
		return KindIncome, true
	case equalFold(s, string(KindExpense)):
		return KindExpense, true
	}
	return "", false
}

// DefaultCategories are the categories offered by the entry form.
var DefaultCategories = []string{"Salary", "Food", "Transport", "Rent", "Miscellaneous", "Investment"}

// Entry is one income or expense record. Entries are append-only:
// once stored they are never updated in place.
type Entry struct {
	ID       int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Owner    string          `gorm:"column:username;size:64;index;not null" json:"username"`
	Date     time.Time       `gorm:"index;not null" json:"date"`
	Kind     EntryKind       `gorm:"size:16;not null" json:"kind"`
	Category string          `gorm:"size:32;not null" json:"category"`
	Amount   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Notes    string          `gorm:"size:255" json:"notes"`
}

func (Entry) TableName() string { return "ledger_entries" }

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}
