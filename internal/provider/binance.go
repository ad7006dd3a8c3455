package provider

import (
	"context"
	"strconv"

	"github.com/adshao/go-binance/v2"
	"github.com/cradoe/galpe/internal/currency"
)

// binancePairs maps our symbols to the Binance EUR spot pairs that quote
// them.
var binancePairs = map[currency.Symbol]string{
	"BTC": "BTCEUR",
	"ETH": "ETHEUR",
	"XRP": "XRPEUR",
	"SOL": "SOLEUR",
	"BNB": "BNBEUR",
	"ADA": "ADAEUR",
}

// Binance is an alternate quote source built on the Binance spot API. It
// reads public 24h ticker statistics, so the credentials may be blank.
type Binance struct {
	client *binance.Client
}

func NewBinance(apiKey, secretKey string) *Binance {
	return &Binance{
		client: binance.NewClient(apiKey, secretKey),
	}
}

func (p *Binance) IsAvailable(symbol currency.Symbol) bool {
	_, ok := binancePairs[currency.NewSymbol(symbol.String())]
	return ok
}

// GetMultiplePrices pulls the full 24h ticker snapshot in one call and picks
// out the EUR pairs for the requested symbols. Pairs absent from the
// snapshot are omitted; a failed call fails the whole batch.
func (p *Binance) GetMultiplePrices(ctx context.Context, symbols []currency.Symbol) (map[currency.Symbol]Quote, error) {
	quotes := make(map[currency.Symbol]Quote)

	var wanted []currency.Symbol
	for _, symbol := range symbols {
		normalized := currency.NewSymbol(symbol.String())
		if _, ok := binancePairs[normalized]; ok {
			wanted = append(wanted, normalized)
		}
	}

	if len(wanted) == 0 {
		return quotes, nil
	}

	stats, err := p.client.NewListPriceChangeStatsService().Do(ctx)
	if err != nil {
		return nil, err
	}

	byPair := make(map[string]*binance.PriceChangeStats, len(stats))
	for _, s := range stats {
		byPair[s.Symbol] = s
	}

	for _, symbol := range wanted {
		s, ok := byPair[binancePairs[symbol]]
		if !ok {
			continue
		}

		price, err := strconv.ParseFloat(s.LastPrice, 64)
		if err != nil {
			continue
		}

		change, err := strconv.ParseFloat(s.PriceChangePercent, 64)
		if err != nil {
			change = 0
		}

		quotes[symbol] = Quote{
			PriceEur:  roundCents(price),
			Change24h: roundCents(change),
		}
	}

	return quotes, nil
}
