package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cradoe/galpe/internal/currency"
)

const defaultCoinMarketCapBaseURL = "https://pro-api.coinmarketcap.com/v1"

// coinMarketCapIDs maps our symbols to CoinMarketCap listings. Symbols
// without an entry (in-house assets like RWA and DEPIN) keep their static
// cached prices.
var coinMarketCapIDs = map[currency.Symbol]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"XRP": "ripple",
	"SOL": "solana",
	"BNB": "binancecoin",
	"ADA": "cardano",
}

// CoinMarketCap fetches EUR quotes from the CoinMarketCap pro API.
type CoinMarketCap struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewCoinMarketCap(apiKey, baseURL string) *CoinMarketCap {
	if baseURL == "" {
		baseURL = defaultCoinMarketCapBaseURL
	}

	return &CoinMarketCap{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *CoinMarketCap) IsAvailable(symbol currency.Symbol) bool {
	_, ok := coinMarketCapIDs[currency.NewSymbol(symbol.String())]
	return ok
}

type coinMarketCapResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string]struct {
		Quote map[string]struct {
			Price            float64 `json:"price"`
			PercentChange24h float64 `json:"percent_change_24h"`
		} `json:"quote"`
	} `json:"data"`
}

// GetMultiplePrices requests all mapped symbols in one batch call. Symbols
// missing from the response are omitted; transport and API errors fail the
// whole call.
func (p *CoinMarketCap) GetMultiplePrices(ctx context.Context, symbols []currency.Symbol) (map[currency.Symbol]Quote, error) {
	var mapped []string
	for _, symbol := range symbols {
		normalized := currency.NewSymbol(symbol.String())
		if _, ok := coinMarketCapIDs[normalized]; ok {
			mapped = append(mapped, normalized.String())
		}
	}

	quotes := make(map[currency.Symbol]Quote)
	if len(mapped) == 0 {
		return quotes, nil
	}

	endpoint := fmt.Sprintf("%s/cryptocurrency/quotes/latest?%s", p.baseURL, url.Values{
		"symbol":  {strings.Join(mapped, ",")},
		"convert": {"EUR"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-CMC_PRO_API_KEY", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body coinMarketCapResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("coinmarketcap: decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := body.Status.ErrorMessage
		if message == "" {
			message = resp.Status
		}
		return nil, fmt.Errorf("coinmarketcap: %s", message)
	}

	for _, symbol := range mapped {
		data, ok := body.Data[symbol]
		if !ok {
			continue
		}

		quote, ok := data.Quote["EUR"]
		if !ok {
			continue
		}

		quotes[currency.Symbol(symbol)] = Quote{
			PriceEur:  roundCents(quote.Price),
			Change24h: roundCents(quote.PercentChange24h),
		}
	}

	return quotes, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
