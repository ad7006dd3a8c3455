// Package provider abstracts the external market-data sources the price
// worker pulls quotes from.
package provider

import (
	"context"

	"github.com/cradoe/galpe/internal/currency"
)

// Quote is the normalized shape every provider returns: the current price
// in euros and the 24h percentage change.
type Quote struct {
	PriceEur  float64
	Change24h float64
}

// QuoteProvider supplies current market prices for symbols. A batch call
// fails as a whole on transport or auth errors; symbols the provider does
// not recognize are simply omitted from the result.
type QuoteProvider interface {
	IsAvailable(symbol currency.Symbol) bool
	GetMultiplePrices(ctx context.Context, symbols []currency.Symbol) (map[currency.Symbol]Quote, error)
}
