package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cradoe/galpe/internal/currency"
	"github.com/jmoiron/sqlx"
)

// Coin is the cached market view of one listed asset. Price fields are only
// written by the price worker; everything else reads them.
type Coin struct {
	Symbol    string          `db:"symbol" json:"symbol"`
	Name      string          `db:"name" json:"name"`
	PriceEur  sql.NullFloat64 `db:"price_eur" json:"price_eur"`
	Change24h sql.NullFloat64 `db:"change_24h" json:"change_24h"`
	IconColor sql.NullString  `db:"icon_color" json:"icon_color"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

type CoinRepository interface {
	Insert(coin *Coin, tx *sqlx.Tx) error
	GetAll() ([]Coin, error)
	GetBySymbol(symbol currency.Symbol) (*Coin, bool, error)
	UpdatePrice(symbol currency.Symbol, priceEur, change24h float64) error
}

type CoinRepositoryImpl struct {
	db *sqlx.DB
}

func NewCoinRepository(db *sqlx.DB) CoinRepository {
	return &CoinRepositoryImpl{db: db}
}

func (repo *CoinRepositoryImpl) Insert(coin *Coin, tx *sqlx.Tx) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO coins (symbol, name, price_eur, change_24h, icon_color)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO NOTHING`

	if tx != nil {
		_, err := tx.ExecContext(ctx, query, coin.Symbol, coin.Name, coin.PriceEur, coin.Change24h, coin.IconColor)
		return err
	}

	_, err := repo.db.ExecContext(ctx, query, coin.Symbol, coin.Name, coin.PriceEur, coin.Change24h, coin.IconColor)
	return err
}

func (repo *CoinRepositoryImpl) GetAll() ([]Coin, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var coins []Coin

	query := `
        SELECT symbol, name, price_eur, change_24h, icon_color, updated_at FROM coins ORDER BY symbol`

	err := repo.db.SelectContext(ctx, &coins, query)

	if err != nil {
		return nil, err
	}

	return coins, nil
}

func (repo *CoinRepositoryImpl) GetBySymbol(symbol currency.Symbol) (*Coin, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var coin Coin

	query := `
        SELECT symbol, name, price_eur, change_24h, icon_color, updated_at FROM coins WHERE symbol=$1`

	err := repo.db.GetContext(ctx, &coin, query, symbol.String())

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &coin, true, nil
}

func (repo *CoinRepositoryImpl) UpdatePrice(symbol currency.Symbol, priceEur, change24h float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE coins
		SET price_eur = $1, change_24h = $2, updated_at = NOW()
		WHERE symbol = $3`

	_, err := repo.db.ExecContext(ctx, query, priceEur, change24h, symbol.String())
	return err
}
