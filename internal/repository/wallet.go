package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cradoe/galpe/internal/currency"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Wallet holds one user's balance in one currency. Rows are only ever
// mutated through the ledger repository, which serializes concurrent
// credits/debits per (user_id, currency) key.
type Wallet struct {
	UserID    string          `db:"user_id"`
	Currency  string          `db:"currency"`
	Amount    decimal.Decimal `db:"amount"`
	UpdatedAt time.Time       `db:"updated_at"`
}

type WalletRepository interface {
	Balance(userID string, symbol currency.Symbol) (decimal.Decimal, error)
	GetAllByUserID(userID string) ([]Wallet, error)
}

type WalletRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &WalletRepositoryImpl{db: db}
}

// Balance returns the wallet amount for the pair. A missing row means the
// user never held this currency, which reads as a zero balance, not an error.
func (repo *WalletRepositoryImpl) Balance(userID string, symbol currency.Symbol) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var amount decimal.Decimal

	query := `
        SELECT amount FROM wallets WHERE user_id=$1 AND currency=$2`

	err := repo.db.GetContext(ctx, &amount, query, userID, symbol.String())

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}

	return amount, nil
}

func (repo *WalletRepositoryImpl) GetAllByUserID(userID string) ([]Wallet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallets []Wallet

	query := `
        SELECT user_id, currency, amount, updated_at FROM wallets WHERE user_id=$1 ORDER BY currency`

	err := repo.db.SelectContext(ctx, &wallets, query, userID)

	if err != nil {
		return nil, err
	}

	return wallets, nil
}
