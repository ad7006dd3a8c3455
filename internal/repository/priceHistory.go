package repository

import (
	"context"
	"time"

	"github.com/cradoe/galpe/internal/currency"
	"github.com/jmoiron/sqlx"
)

// PricePoint is one timestamped price sample for a symbol. Points are
// append-only and ordered by created_at, so a symbol's series can be
// replayed for charting.
type PricePoint struct {
	ID        int64     `db:"id" json:"-"`
	Symbol    string    `db:"symbol" json:"symbol"`
	PriceEur  float64   `db:"price_eur" json:"price_eur"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type PriceHistoryRepository interface {
	Insert(symbol currency.Symbol, priceEur float64) error
	LastPoints(symbol currency.Symbol, limit int) ([]PricePoint, error)
	PointsSince(symbol currency.Symbol, since time.Time, limit int) ([]PricePoint, error)
}

type PriceHistoryRepositoryImpl struct {
	db *sqlx.DB
}

func NewPriceHistoryRepository(db *sqlx.DB) PriceHistoryRepository {
	return &PriceHistoryRepositoryImpl{db: db}
}

func (repo *PriceHistoryRepositoryImpl) Insert(symbol currency.Symbol, priceEur float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO price_history (symbol, price_eur)
		VALUES ($1, $2)`

	_, err := repo.db.ExecContext(ctx, query, symbol.String(), priceEur)
	return err
}

// LastPoints returns up to limit most recent points, oldest first, ready for
// chart consumption.
func (repo *PriceHistoryRepositoryImpl) LastPoints(symbol currency.Symbol, limit int) ([]PricePoint, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var points []PricePoint

	query := `
        SELECT id, symbol, price_eur, created_at
        FROM price_history
        WHERE symbol = $1
        ORDER BY created_at DESC
        LIMIT $2`

	err := repo.db.SelectContext(ctx, &points, query, symbol.String(), limit)

	if err != nil {
		return nil, err
	}

	// the query selects newest-first to honor the limit; flip to ascending
	reverseChronological(points)

	return points, nil
}

func reverseChronological(points []PricePoint) {
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
}

// PointsSince returns points with created_at >= since, oldest first, capped
// at limit.
func (repo *PriceHistoryRepositoryImpl) PointsSince(symbol currency.Symbol, since time.Time, limit int) ([]PricePoint, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var points []PricePoint

	query := `
        SELECT id, symbol, price_eur, created_at
        FROM price_history
        WHERE symbol = $1 AND created_at >= $2
        ORDER BY created_at ASC
        LIMIT $3`

	err := repo.db.SelectContext(ctx, &points, query, symbol.String(), since, limit)

	if err != nil {
		return nil, err
	}

	return points, nil
}
