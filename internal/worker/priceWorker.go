package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cradoe/galpe/internal/cache"
	"github.com/cradoe/galpe/internal/currency"
	"github.com/cradoe/galpe/internal/provider"
	"github.com/cradoe/galpe/internal/repository"
	"github.com/cradoe/galpe/internal/stream"
)

const (
	// DefaultPriceInterval is how often the worker refreshes quotes.
	DefaultPriceInterval = 30 * time.Second

	// refreshTimeout bounds one whole refresh cycle so a slow upstream
	// cannot bleed into the next tick.
	refreshTimeout = 20 * time.Second

	// coinsCacheKey is the cache slot holding the latest coin snapshot.
	coinsCacheKey = "coins:latest"
)

// PriceWorker periodically pulls fresh quotes for every listed coin and fans
// them out: the coins table, the append-only price history, the cache
// snapshot and a kafka event. A failed batch changes nothing except the
// last-attempt timestamp, so readers keep serving the previous prices.
type PriceWorker struct {
	Provider    provider.QuoteProvider
	CoinRepo    repository.CoinRepository
	HistoryRepo repository.PriceHistoryRepository
	Cache       *cache.Cache
	KafkaStream *stream.KafkaStream
	Logger      *slog.Logger
	Interval    time.Duration

	mu          sync.RWMutex
	lastAttempt time.Time
}

func NewPriceWorker(wk *PriceWorker) *PriceWorker {
	interval := wk.Interval
	if interval <= 0 {
		interval = DefaultPriceInterval
	}

	return &PriceWorker{
		Provider:    wk.Provider,
		CoinRepo:    wk.CoinRepo,
		HistoryRepo: wk.HistoryRepo,
		Cache:       wk.Cache,
		KafkaStream: wk.KafkaStream,
		Logger:      wk.Logger,
		Interval:    interval,
	}
}

// Start runs the refresh loop until ctx is cancelled. The first refresh is
// immediate; clients should not wait a full interval for initial prices.
func (wk *PriceWorker) Start(ctx context.Context) {
	wk.RefreshPrices(ctx)

	ticker := time.NewTicker(wk.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wk.RefreshPrices(ctx)
		}
	}
}

// LastPriceUpdate reports when the worker last attempted a refresh. Failed
// attempts move it too, so a stale timestamp always means the loop is stuck,
// not that the upstream is down.
func (wk *PriceWorker) LastPriceUpdate() time.Time {
	wk.mu.RLock()
	defer wk.mu.RUnlock()

	return wk.lastAttempt
}

// RefreshPrices runs one refresh cycle. A provider error rejects the whole
// batch: no coin row, history point or cache entry is touched.
func (wk *PriceWorker) RefreshPrices(ctx context.Context) error {
	defer wk.markAttempt()

	if wk.Provider == nil {
		return nil
	}

	coins, err := wk.CoinRepo.GetAll()
	if err != nil {
		wk.Logger.Error("price refresh: loading coins", "error", err)
		return err
	}

	symbols := make([]currency.Symbol, 0, len(coins))
	for _, coin := range coins {
		symbol := currency.NewSymbol(coin.Symbol)
		if wk.Provider.IsAvailable(symbol) {
			symbols = append(symbols, symbol)
		}
	}

	if len(symbols) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	quotes, err := wk.Provider.GetMultiplePrices(ctx, symbols)
	if err != nil {
		wk.Logger.Error("price refresh: fetching quotes", "error", err)
		return err
	}

	updated := make([]string, 0, len(quotes))
	for _, symbol := range symbols {
		quote, ok := quotes[symbol]
		if !ok {
			continue
		}

		if !isFinite(quote.PriceEur) || !isFinite(quote.Change24h) {
			wk.Logger.Warn("price refresh: dropping non-finite quote", "symbol", symbol.String())
			continue
		}

		if err := wk.CoinRepo.UpdatePrice(symbol, quote.PriceEur, quote.Change24h); err != nil {
			wk.Logger.Error("price refresh: updating coin", "symbol", symbol.String(), "error", err)
			continue
		}

		// a failed history insert should not block the other symbols
		if err := wk.HistoryRepo.Insert(symbol, quote.PriceEur); err != nil {
			wk.Logger.Error("price refresh: recording history", "symbol", symbol.String(), "error", err)
		}

		updated = append(updated, symbol.String())
	}

	if len(updated) > 0 {
		wk.publishSnapshot(updated)
	}

	return nil
}

func (wk *PriceWorker) markAttempt() {
	wk.mu.Lock()
	defer wk.mu.Unlock()

	wk.lastAttempt = time.Now()
}

func (wk *PriceWorker) publishSnapshot(updated []string) {
	if wk.Cache != nil {
		coins, err := wk.CoinRepo.GetAll()
		if err != nil {
			wk.Logger.Error("price refresh: reloading coins for snapshot", "error", err)
		} else if err := wk.Cache.SetJSON(coinsCacheKey, coins, 2*wk.Interval); err != nil {
			wk.Logger.Error("price refresh: caching snapshot", "error", err)
		}
	}

	if wk.KafkaStream != nil {
		payload, err := json.Marshal(map[string]any{
			"updated_at": time.Now().UTC(),
			"symbols":    updated,
		})
		if err != nil {
			return
		}

		if err := wk.KafkaStream.ProduceMessage(PriceUpdatedTopic, string(payload)); err != nil {
			wk.Logger.Error("price refresh: publishing event", "error", err)
		}
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
