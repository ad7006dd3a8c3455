package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cradoe/galpe/internal/currency"
	"github.com/stretchr/testify/require"
)

func symbols(ss ...string) []currency.Symbol {
	out := make([]currency.Symbol, len(ss))
	for i, s := range ss {
		out[i] = currency.NewSymbol(s)
	}
	return out
}

func TestCoinMarketCapGetMultiplePrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("X-CMC_PRO_API_KEY"))
		require.Equal(t, "EUR", r.URL.Query().Get("convert"))
		require.Contains(t, r.URL.Query().Get("symbol"), "BTC")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": {"error_code": 0},
			"data": {
				"BTC": {"quote": {"EUR": {"price": 61234.5678, "percent_change_24h": -1.2345}}},
				"ETH": {"quote": {"EUR": {"price": 2987.654, "percent_change_24h": 0.456}}}
			}
		}`))
	}))
	defer server.Close()

	p := NewCoinMarketCap("test-key", server.URL)

	quotes, err := p.GetMultiplePrices(context.Background(), symbols("btc", "ETH", "SOL", "RWA"))
	require.NoError(t, err)

	// SOL was requested but not returned; RWA is not mapped at all
	require.Len(t, quotes, 2)
	require.Equal(t, 61234.57, quotes["BTC"].PriceEur)
	require.Equal(t, -1.23, quotes["BTC"].Change24h)
	require.Equal(t, 2987.65, quotes["ETH"].PriceEur)
}

func TestCoinMarketCapAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status": {"error_code": 1002, "error_message": "API key missing."}}`))
	}))
	defer server.Close()

	p := NewCoinMarketCap("", server.URL)

	_, err := p.GetMultiplePrices(context.Background(), symbols("BTC"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key missing")
}

func TestCoinMarketCapSkipsCallWithoutMappedSymbols(t *testing.T) {
	// server would fail the test if reached
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request for unmapped symbols")
	}))
	defer server.Close()

	p := NewCoinMarketCap("test-key", server.URL)

	quotes, err := p.GetMultiplePrices(context.Background(), symbols("RWA", "DEPIN"))
	require.NoError(t, err)
	require.Empty(t, quotes)
}

func TestCoinMarketCapAvailability(t *testing.T) {
	p := NewCoinMarketCap("test-key", "")

	require.True(t, p.IsAvailable("BTC"))
	require.True(t, p.IsAvailable("eth"))
	require.False(t, p.IsAvailable("RWA"))
}
