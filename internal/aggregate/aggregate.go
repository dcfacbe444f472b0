// Package aggregate derives totals and rollups from ledger entries.
// Every function here is pure: inputs are read, never modified.
package aggregate

import (
	"iter"
	"slices"
	"time"

	"finora/internal/models"

	"github.com/shopspring/decimal"
)

// Totals is the income / expense / savings rollup of a set of entries.
// Savings may be negative.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Savings decimal.Decimal `json:"savings"`
}

// ComputeTotals sums income and expense amounts.
func ComputeTotals(entries iter.Seq[models.Entry]) Totals {
	var t Totals
	for e := range entries {
		switch e.Kind {
		case models.KindIncome:
			t.Income = t.Income.Add(e.Amount)
		case models.KindExpense:
			t.Expense = t.Expense.Add(e.Amount)
		}
	}
	t.Savings = t.Income.Sub(t.Expense)
	return t
}

// ByCategory sums expense amounts per category. Income is ignored.
func ByCategory(entries iter.Seq[models.Entry]) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for e := range entries {
		if e.Kind != models.KindExpense {
			continue
		}
		out[e.Category] = out[e.Category].Add(e.Amount)
	}
	return out
}

// CategoryAmount is one row of a category breakdown.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// SortedCategories turns a ByCategory map into rows, largest first, ties by
// name.
func SortedCategories(m map[string]decimal.Decimal) []CategoryAmount {
	rows := make([]CategoryAmount, 0, len(m))
	for c, a := range m {
		rows = append(rows, CategoryAmount{Category: c, Amount: a})
	}
	slices.SortFunc(rows, func(a, b CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		if a.Category < b.Category {
			return -1
		}
		if a.Category > b.Category {
			return 1
		}
		return 0
	})
	return rows
}

// SavingsRate is savings / income, or 0 when there is no income.
func SavingsRate(t Totals) float64 {
	if t.Income.IsZero() {
		return 0
	}
	return t.Savings.Div(t.Income).InexactFloat64()
}

// Recent returns up to n entries, newest first. Entries on the same day
// keep the later-inserted one first.
func Recent(entries iter.Seq[models.Entry], n int) []models.Entry {
	all := slices.Collect(entries)
	slices.Reverse(all)
	slices.SortStableFunc(all, func(a, b models.Entry) int {
		return b.Date.Compare(a.Date)
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// NetWorth is cumulative savings plus what has been set aside for goals.
func NetWorth(t Totals, goals []models.Goal) decimal.Decimal {
	nw := t.Savings
	for _, g := range goals {
		nw = nw.Add(g.SavedAmount)
	}
	return nw
}

// GoalStatus is the progress of one goal at a point in time.
type GoalStatus struct {
	Goal      models.Goal     `json:"goal"`
	Remaining decimal.Decimal `json:"remaining"`
	Percent   float64         `json:"percent"`
	Reached   bool            `json:"reached"`
	Overdue   bool            `json:"overdue"`
}

// GoalProgress reports progress for each goal as of now.
func GoalProgress(goals []models.Goal, now time.Time) []GoalStatus {
	out := make([]GoalStatus, 0, len(goals))
	for _, g := range goals {
		st := GoalStatus{Goal: g, Remaining: g.TargetAmount.Sub(g.SavedAmount)}
		if st.Remaining.IsNegative() {
			st.Remaining = decimal.Zero
		}
		if g.TargetAmount.IsPositive() {
			st.Percent = g.SavedAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
		st.Reached = g.SavedAmount.GreaterThanOrEqual(g.TargetAmount)
		st.Overdue = !st.Reached && !g.Deadline.IsZero() && now.After(g.Deadline)
		out = append(out, st)
	}
	return out
}

// Budget compares one month of expenses with a monthly limit.
type Budget struct {
	Month     string          `json:"month"`
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Exceeded  bool            `json:"exceeded"`
}

// BudgetStatus sums the expenses dated in the calendar month of month.
func BudgetStatus(entries iter.Seq[models.Entry], limit decimal.Decimal, month time.Time) Budget {
	start := Month.Truncate(month)
	end := Month.next(start)
	b := Budget{Month: Month.Label(start), Limit: limit}
	for e := range entries {
		if e.Kind == models.KindExpense && !e.Date.Before(start) && e.Date.Before(end) {
			b.Spent = b.Spent.Add(e.Amount)
		}
	}
	b.Remaining = limit.Sub(b.Spent)
	b.Exceeded = b.Spent.GreaterThan(limit)
	return b
}
