package util

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD civil day as midnight UTC.
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	d, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %w", err)
	}
	return d, nil
}

// ParseOptionalDate is ParseDate that maps "" to the zero time.
func ParseOptionalDate(dateStr string) (time.Time, error) {
	if strings.TrimSpace(dateStr) == "" {
		return time.Time{}, nil
	}
	return ParseDate(dateStr)
}

// ParseMonth parses YYYY-MM into the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	m, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month format: %w", err)
	}
	return m, nil
}

// ValidateCategory checks a category label: non-empty, at most 32 characters.
func ValidateCategory(category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return fmt.Errorf("category is empty")
	}
	if utf8.RuneCountInString(category) > 32 {
		return fmt.Errorf("category too long, max 32 characters")
	}
	return nil
}
