// Package market looks up last traded prices. Lookups are best effort and
// their results are never stored.
package market

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned, possibly wrapped, whenever a price cannot be had.
var ErrUnavailable = errors.New("market data unavailable")

type Provider interface {
	GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// StaticProvider serves a fixed price table.
type StaticProvider map[string]decimal.Decimal

func (p StaticProvider) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, errors.Join(ErrUnavailable, err)
	}
	price, ok := p[NormalizeSymbol(symbol)]
	if !ok {
		return decimal.Zero, ErrUnavailable
	}
	return price, nil
}

// Unavailable is the provider used when no quote source is configured.
type Unavailable struct{}

func (Unavailable) GetLastPrice(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, ErrUnavailable
}
