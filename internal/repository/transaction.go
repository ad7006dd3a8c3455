package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// Transaction is one immutable fund-movement record. Rows are append-only:
// nothing in the codebase updates or deletes them once written.
type Transaction struct {
	ID          string          `db:"id"`
	UserID      string          `db:"user_id"`
	Type        string          `db:"type"`
	Currency    string          `db:"currency"`
	Amount      decimal.Decimal `db:"amount"`
	Fee         decimal.Decimal `db:"fee"`
	Destination sql.NullString  `db:"destination"`
	Meta        types.JSONText  `db:"meta"`
	CreatedAt   time.Time       `db:"created_at"`
}

// define possible transaction types
// trade_buy and trade_sell are accepted tags with no producing operation
// here; an external trading caller may record them through the ledger.
const (
	TransactionTypeDeposit   = "deposit"
	TransactionTypeWithdraw  = "withdraw"
	TransactionTypeTradeBuy  = "trade_buy"
	TransactionTypeTradeSell = "trade_sell"
)

type TransactionRepository interface {
	GetAllByUserID(userID string, limit int) ([]Transaction, error)
	CountByUserID(userID string) (int, error)
}

type TransactionRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

// GetAllByUserID returns the user's most recent transactions, newest first.
func (repo *TransactionRepositoryImpl) GetAllByUserID(userID string, limit int) ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var transactions []Transaction

	query := `
        SELECT id, user_id, type, currency, amount, fee, destination, meta, created_at
        FROM transactions
        WHERE user_id=$1
        ORDER BY created_at DESC
        LIMIT $2`

	err := repo.db.SelectContext(ctx, &transactions, query, userID, limit)

	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (repo *TransactionRepositoryImpl) CountByUserID(userID string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var count int

	query := `
        SELECT COUNT(*) FROM transactions WHERE user_id=$1`

	err := repo.db.GetContext(ctx, &count, query, userID)

	if err != nil {
		return 0, err
	}

	return count, nil
}
