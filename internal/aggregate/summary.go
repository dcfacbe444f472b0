package aggregate

import (
	"slices"
	"time"

	"finora/internal/models"

	"github.com/shopspring/decimal"
)

const recentCount = 10

// Summary is the dashboard view of one user's ledger.
type Summary struct {
	Totals      Totals           `json:"totals"`
	SavingsRate float64          `json:"savings_rate"`
	NetWorth    decimal.Decimal  `json:"net_worth"`
	ByCategory  []CategoryAmount `json:"by_category"`
	Recent      []models.Entry   `json:"recent"`
	Goals       []GoalStatus     `json:"goals"`
	Budget      *Budget          `json:"budget,omitempty"`
	Overspent   bool             `json:"overspent"`
}

// Summarize builds the dashboard from a user's entries and goals. budget is
// the optional monthly limit; now picks the budget month and goal deadlines.
func Summarize(entries []models.Entry, goals []models.Goal, budget decimal.NullDecimal, now time.Time) Summary {
	seq := slices.Values(entries)
	totals := ComputeTotals(seq)
	s := Summary{
		Totals:      totals,
		SavingsRate: SavingsRate(totals),
		NetWorth:    NetWorth(totals, goals),
		ByCategory:  SortedCategories(ByCategory(seq)),
		Recent:      Recent(seq, recentCount),
		Goals:       GoalProgress(goals, now),
		Overspent:   totals.Savings.IsNegative(),
	}
	if budget.Valid {
		b := BudgetStatus(seq, budget.Decimal, now)
		s.Budget = &b
	}
	return s
}
