package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/cradoe/galpe/internal/currency"
	"github.com/cradoe/galpe/internal/provider"
	"github.com/cradoe/galpe/internal/repository"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type fakeQuoteSource struct {
	quotes      map[currency.Symbol]provider.Quote
	err         error
	unavailable map[currency.Symbol]bool
	requested   []currency.Symbol
}

func (f *fakeQuoteSource) IsAvailable(symbol currency.Symbol) bool {
	return !f.unavailable[symbol]
}

func (f *fakeQuoteSource) GetMultiplePrices(ctx context.Context, symbols []currency.Symbol) (map[currency.Symbol]provider.Quote, error) {
	f.requested = append([]currency.Symbol(nil), symbols...)

	if f.err != nil {
		return nil, f.err
	}

	quotes := make(map[currency.Symbol]provider.Quote)
	for _, symbol := range symbols {
		if quote, ok := f.quotes[symbol]; ok {
			quotes[symbol] = quote
		}
	}

	return quotes, nil
}

type fakeCoinRepo struct {
	coins   []repository.Coin
	applied map[string]float64
}

func newFakeCoinRepo(symbols ...string) *fakeCoinRepo {
	repo := &fakeCoinRepo{applied: make(map[string]float64)}
	for _, symbol := range symbols {
		repo.coins = append(repo.coins, repository.Coin{Symbol: symbol, Name: symbol})
	}
	return repo
}

func (f *fakeCoinRepo) Insert(coin *repository.Coin, tx *sqlx.Tx) error {
	f.coins = append(f.coins, *coin)
	return nil
}

func (f *fakeCoinRepo) GetAll() ([]repository.Coin, error) {
	return f.coins, nil
}

func (f *fakeCoinRepo) GetBySymbol(symbol currency.Symbol) (*repository.Coin, bool, error) {
	for i := range f.coins {
		if f.coins[i].Symbol == symbol.String() {
			return &f.coins[i], true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeCoinRepo) UpdatePrice(symbol currency.Symbol, priceEur, change24h float64) error {
	f.applied[symbol.String()] = priceEur
	return nil
}

type fakeHistoryRepo struct {
	points  map[string][]float64
	failFor map[string]error
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{
		points:  make(map[string][]float64),
		failFor: make(map[string]error),
	}
}

func (f *fakeHistoryRepo) Insert(symbol currency.Symbol, priceEur float64) error {
	if err := f.failFor[symbol.String()]; err != nil {
		return err
	}
	f.points[symbol.String()] = append(f.points[symbol.String()], priceEur)
	return nil
}

func (f *fakeHistoryRepo) LastPoints(symbol currency.Symbol, limit int) ([]repository.PricePoint, error) {
	return nil, nil
}

func (f *fakeHistoryRepo) PointsSince(symbol currency.Symbol, since time.Time, limit int) ([]repository.PricePoint, error) {
	return nil, nil
}

func newTestPriceWorker(source provider.QuoteProvider, coins *fakeCoinRepo, history *fakeHistoryRepo) *PriceWorker {
	return NewPriceWorker(&PriceWorker{
		Provider:    source,
		CoinRepo:    coins,
		HistoryRepo: history,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRefreshAppliesQuotes(t *testing.T) {
	coins := newFakeCoinRepo("BTC", "ETH")
	history := newFakeHistoryRepo()
	source := &fakeQuoteSource{
		quotes: map[currency.Symbol]provider.Quote{
			"BTC": {PriceEur: 60123.45, Change24h: 1.2},
			"ETH": {PriceEur: 2890.10, Change24h: -0.4},
		},
	}

	wk := newTestPriceWorker(source, coins, history)

	err := wk.RefreshPrices(context.Background())
	require.NoError(t, err)

	require.Equal(t, 60123.45, coins.applied["BTC"])
	require.Equal(t, 2890.10, coins.applied["ETH"])
	require.Equal(t, []float64{60123.45}, history.points["BTC"])
	require.Equal(t, []float64{2890.10}, history.points["ETH"])
	require.False(t, wk.LastPriceUpdate().IsZero())
}

func TestRefreshWholeBatchFailure(t *testing.T) {
	coins := newFakeCoinRepo("BTC", "ETH")
	history := newFakeHistoryRepo()
	source := &fakeQuoteSource{err: errors.New("upstream timeout")}

	wk := newTestPriceWorker(source, coins, history)

	err := wk.RefreshPrices(context.Background())
	require.Error(t, err)

	// a failed batch must leave every price untouched
	require.Empty(t, coins.applied)
	require.Empty(t, history.points)

	// ...but the attempt timestamp still moves
	require.False(t, wk.LastPriceUpdate().IsZero())
}

func TestRefreshWithoutProvider(t *testing.T) {
	coins := newFakeCoinRepo("BTC")
	history := newFakeHistoryRepo()

	wk := newTestPriceWorker(nil, coins, history)

	err := wk.RefreshPrices(context.Background())
	require.NoError(t, err)

	require.Empty(t, coins.applied)
	require.False(t, wk.LastPriceUpdate().IsZero())
}

func TestRefreshKeepsPreviousPriceForMissingSymbols(t *testing.T) {
	coins := newFakeCoinRepo("BTC", "RWA")
	history := newFakeHistoryRepo()
	source := &fakeQuoteSource{
		quotes: map[currency.Symbol]provider.Quote{
			"BTC": {PriceEur: 60000, Change24h: 0.5},
		},
	}

	wk := newTestPriceWorker(source, coins, history)

	err := wk.RefreshPrices(context.Background())
	require.NoError(t, err)

	require.Contains(t, coins.applied, "BTC")
	require.NotContains(t, coins.applied, "RWA")
	require.NotContains(t, history.points, "RWA")
}

func TestRefreshSkipsUnavailableSymbols(t *testing.T) {
	coins := newFakeCoinRepo("BTC", "DEPIN")
	history := newFakeHistoryRepo()
	source := &fakeQuoteSource{
		quotes: map[currency.Symbol]provider.Quote{
			"BTC": {PriceEur: 60000, Change24h: 0.5},
		},
		unavailable: map[currency.Symbol]bool{"DEPIN": true},
	}

	wk := newTestPriceWorker(source, coins, history)

	err := wk.RefreshPrices(context.Background())
	require.NoError(t, err)

	require.Equal(t, []currency.Symbol{"BTC"}, source.requested)
}

func TestRefreshDropsNonFiniteQuotes(t *testing.T) {
	coins := newFakeCoinRepo("BTC", "ETH")
	history := newFakeHistoryRepo()
	source := &fakeQuoteSource{
		quotes: map[currency.Symbol]provider.Quote{
			"BTC": {PriceEur: math.NaN(), Change24h: 0},
			"ETH": {PriceEur: 2890.10, Change24h: math.Inf(1)},
		},
	}

	wk := newTestPriceWorker(source, coins, history)

	err := wk.RefreshPrices(context.Background())
	require.NoError(t, err)

	require.Empty(t, coins.applied)
	require.Empty(t, history.points)
}

func TestHistoryFailureDoesNotBlockOtherSymbols(t *testing.T) {
	coins := newFakeCoinRepo("BTC", "ETH")
	history := newFakeHistoryRepo()
	history.failFor["BTC"] = errors.New("disk full")

	source := &fakeQuoteSource{
		quotes: map[currency.Symbol]provider.Quote{
			"BTC": {PriceEur: 60000, Change24h: 0.5},
			"ETH": {PriceEur: 2890.10, Change24h: -0.4},
		},
	}

	wk := newTestPriceWorker(source, coins, history)

	err := wk.RefreshPrices(context.Background())
	require.NoError(t, err)

	// the coin price still updates even when its history insert fails
	require.Contains(t, coins.applied, "BTC")
	require.Contains(t, coins.applied, "ETH")
	require.Equal(t, []float64{2890.10}, history.points["ETH"])
	require.Empty(t, history.points["BTC"])
}
