package aggregate

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"finora/internal/models"

	"github.com/shopspring/decimal"
)

// Granularity is the bucket size of a trend view.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week" // ISO weeks, Monday first
	Month Granularity = "month"
	Year  Granularity = "year"
)

// ParseGranularity accepts day, week, month or year in any case.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case Day, Week, Month, Year:
		return g, nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// Truncate returns the first day of the period containing t.
func (g Granularity) Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	switch g {
	case Week:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

func (g Granularity) next(start time.Time) time.Time {
	switch g {
	case Week:
		return start.AddDate(0, 0, 7)
	case Month:
		return start.AddDate(0, 1, 0)
	case Year:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// Label formats a period start: 2025-03-09, 2025-W10, 2025-03 or 2025.
func (g Granularity) Label(start time.Time) string {
	switch g {
	case Week:
		y, w := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", y, w)
	case Month:
		return start.Format("2006-01")
	case Year:
		return start.Format("2006")
	default:
		return start.Format(time.DateOnly)
	}
}

// PeriodTotals is the income and expense of one period.
type PeriodTotals struct {
	Period  string          `json:"period"`
	Start   time.Time       `json:"start"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// MaxFilledPeriods bounds a gap-filled trend; about ten years of days.
const MaxFilledPeriods = 3700

// ErrSpanTooLarge means a gap-filled trend would exceed MaxFilledPeriods.
var ErrSpanTooLarge = errors.New("too many periods to fill")

// ByPeriod groups entries into periods, oldest first. Periods without
// entries are omitted unless fillGaps is set, in which case every period
// between the first and the last one is present with zero totals. Filling
// more than MaxFilledPeriods periods fails with ErrSpanTooLarge.
func ByPeriod(entries iter.Seq[models.Entry], g Granularity, fillGaps bool) ([]PeriodTotals, error) {
	buckets := make(map[time.Time]*PeriodTotals)
	for e := range entries {
		if e.Date.IsZero() {
			continue
		}
		start := g.Truncate(e.Date)
		pt, ok := buckets[start]
		if !ok {
			pt = &PeriodTotals{Period: g.Label(start), Start: start}
			buckets[start] = pt
		}
		switch e.Kind {
		case models.KindIncome:
			pt.Income = pt.Income.Add(e.Amount)
		case models.KindExpense:
			pt.Expense = pt.Expense.Add(e.Amount)
		}
	}
	if len(buckets) == 0 {
		return []PeriodTotals{}, nil
	}

	starts := make([]time.Time, 0, len(buckets))
	for s := range buckets {
		starts = append(starts, s)
	}
	slices.SortFunc(starts, func(a, b time.Time) int { return a.Compare(b) })

	if fillGaps {
		first, last := starts[0], starts[len(starts)-1]
		filled := make([]time.Time, 0, len(starts))
		for s := first; !s.After(last); s = g.next(s) {
			if len(filled) == MaxFilledPeriods {
				return nil, fmt.Errorf("%w: %s periods from %s to %s", ErrSpanTooLarge, g, g.Label(first), g.Label(last))
			}
			filled = append(filled, s)
		}
		starts = filled
	}

	out := make([]PeriodTotals, 0, len(starts))
	for _, s := range starts {
		if pt, ok := buckets[s]; ok {
			out = append(out, *pt)
		} else {
			out = append(out, PeriodTotals{Period: g.Label(s), Start: s})
		}
	}
	return out, nil
}
