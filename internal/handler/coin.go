package handler

import (
	"net/http"
	"time"

	"github.com/cradoe/galpe/internal/cache"
	"github.com/cradoe/galpe/internal/currency"
	"github.com/cradoe/galpe/internal/errHandler"
	"github.com/cradoe/galpe/internal/repository"
	"github.com/cradoe/galpe/internal/response"
)

const (
	// coinsCacheKey is where the price worker drops the latest coin snapshot.
	coinsCacheKey = "coins:latest"

	// chartMaxPoints caps how many samples a single chart request returns.
	chartMaxPoints = 500

	// recentPointCount is the sparkline size served with coin details.
	recentPointCount = 24
)

// PriceFeedStatus reports when the price feed last attempted a refresh. The
// timestamp moves on every attempt, failed ones included, so clients can tell
// a stale feed from a dead one.
type PriceFeedStatus interface {
	LastPriceUpdate() time.Time
}

type CoinHandler struct {
	CoinRepo    repository.CoinRepository
	HistoryRepo repository.PriceHistoryRepository
	Cache       *cache.Cache
	FeedStatus  PriceFeedStatus
	ErrHandler  *errHandler.ErrorHandler
}

func NewCoinHandler(handler *CoinHandler) *CoinHandler {
	return &CoinHandler{
		CoinRepo:    handler.CoinRepo,
		HistoryRepo: handler.HistoryRepo,
		Cache:       handler.Cache,
		FeedStatus:  handler.FeedStatus,
		ErrHandler:  handler.ErrHandler,
	}
}

// HandleListCoins serves the cached snapshot when the worker has published
// one, falling back to the database otherwise.
func (h *CoinHandler) HandleListCoins(w http.ResponseWriter, r *http.Request) {
	var coins []repository.Coin

	found := false
	if h.Cache != nil {
		var err error
		found, err = h.Cache.GetJSON(coinsCacheKey, &coins)
		if err != nil {
			// cache trouble should not take the listing down
			found = false
		}
	}

	if !found {
		var err error
		coins, err = h.CoinRepo.GetAll()
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}
	}

	data := map[string]any{
		"coins": coins,
	}

	if h.FeedStatus != nil {
		if lastUpdate := h.FeedStatus.LastPriceUpdate(); !lastUpdate.IsZero() {
			data["last_price_update"] = lastUpdate
		}
	}

	message := "Coins fetched successfully"
	err := response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *CoinHandler) HandleCoinDetails(w http.ResponseWriter, r *http.Request) {
	symbol := currency.NewSymbol(r.PathValue("symbol"))

	coin, found, err := h.CoinRepo.GetBySymbol(symbol)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		h.ErrHandler.NotFound(w, r)
		return
	}

	// a short recent series, oldest first, for the details sparkline
	recent, err := h.HistoryRepo.LastPoints(symbol, recentPointCount)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Coin details fetched successfully"
	data := map[string]any{
		"coin":          coin,
		"recent_points": recent,
	}
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleCoinChart returns the symbol's price samples inside the requested
// window, oldest first. Unrecognized windows fall back to seven days.
func (h *CoinHandler) HandleCoinChart(w http.ResponseWriter, r *http.Request) {
	symbol := currency.NewSymbol(r.PathValue("symbol"))

	_, found, err := h.CoinRepo.GetBySymbol(symbol)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		h.ErrHandler.NotFound(w, r)
		return
	}

	window := r.URL.Query().Get("window")
	cutoff := windowCutoff(window, time.Now())

	points, err := h.HistoryRepo.PointsSince(symbol, cutoff, chartMaxPoints)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Chart data fetched successfully"
	data := map[string]any{
		"symbol": symbol.String(),
		"window": normalizeWindow(window),
		"points": points,
	}
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func windowCutoff(window string, now time.Time) time.Time {
	switch window {
	case "1h":
		return now.Add(-time.Hour)
	case "12h":
		return now.Add(-12 * time.Hour)
	case "24h":
		return now.Add(-24 * time.Hour)
	case "1m":
		// a fixed 30 days, not a calendar month
		return now.Add(-30 * 24 * time.Hour)
	default:
		// "7d" and anything unrecognized
		return now.Add(-7 * 24 * time.Hour)
	}
}

func normalizeWindow(window string) string {
	switch window {
	case "1h", "12h", "24h", "1m":
		return window
	default:
		return "7d"
	}
}
