package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// LedgerRepository is the atomic store behind the ledger: each call mutates
// one wallet row and appends the matching transaction record inside a single
// database transaction, so either both changes land or neither does.
//
// Serialization per (user_id, currency) key comes from row-level locking:
// Debit takes the wallet row FOR UPDATE before the read-check-write, and
// Credit's upsert locks the row it touches. Two concurrent debits against
// the same wallet therefore never both see the same stale balance; wallets
// of different keys proceed in parallel.
type LedgerRepository interface {
	Credit(entry *Transaction) (decimal.Decimal, error)
	Debit(entry *Transaction) (decimal.Decimal, bool, error)
}

type LedgerRepositoryImpl struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) LedgerRepository {
	return &LedgerRepositoryImpl{db: db}
}

// Credit adds entry.Amount to the wallet, creating the row if the user never
// held the currency, and appends the transaction record. Returns the new
// balance.
func (repo *LedgerRepositoryImpl) Credit(entry *Transaction) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, err
	}

	defer tx.Rollback()

	var newBalance decimal.Decimal

	query := `
		INSERT INTO wallets (user_id, currency, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, currency) DO UPDATE SET
			amount = wallets.amount + EXCLUDED.amount,
			updated_at = NOW()
		RETURNING amount`

	err = tx.GetContext(ctx, &newBalance, query, entry.UserID, entry.Currency, entry.Amount)
	if err != nil {
		return decimal.Zero, err
	}

	err = insertTransaction(ctx, tx, entry)
	if err != nil {
		return decimal.Zero, err
	}

	err = tx.Commit()
	if err != nil {
		return decimal.Zero, err
	}

	return newBalance, nil
}

// Debit subtracts entry.Amount plus entry.Fee from the wallet if the balance
// covers the total, and appends the transaction record. The second return
// value reports whether the debit was applied; false means insufficient
// funds, with the untouched balance returned for context.
func (repo *LedgerRepositoryImpl) Debit(entry *Transaction) (decimal.Decimal, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return decimal.Zero, false, err
	}

	defer tx.Rollback()

	var balance decimal.Decimal

	query := `
		SELECT amount FROM wallets WHERE user_id=$1 AND currency=$2 FOR UPDATE`

	err = tx.GetContext(ctx, &balance, query, entry.UserID, entry.Currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// no wallet row reads as a zero balance
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}

	total := entry.Amount.Add(entry.Fee)
	if balance.LessThan(total) {
		return balance, false, nil
	}

	var newBalance decimal.Decimal

	query = `
		UPDATE wallets SET amount = amount - $1, updated_at = NOW()
		WHERE user_id=$2 AND currency=$3
		RETURNING amount`

	err = tx.GetContext(ctx, &newBalance, query, total, entry.UserID, entry.Currency)
	if err != nil {
		return decimal.Zero, false, err
	}

	err = insertTransaction(ctx, tx, entry)
	if err != nil {
		return decimal.Zero, false, err
	}

	err = tx.Commit()
	if err != nil {
		return decimal.Zero, false, err
	}

	return newBalance, true, nil
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, entry *Transaction) error {
	// a zero CreatedAt means "now"; seed/import callers pass explicit
	// backdated timestamps
	var createdAt any
	if !entry.CreatedAt.IsZero() {
		createdAt = entry.CreatedAt
	}

	query := `
		INSERT INTO transactions (id, user_id, type, currency, amount, fee, destination, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
		RETURNING created_at`

	var recordedAt time.Time

	err := tx.QueryRowContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Type,
		entry.Currency,
		entry.Amount,
		entry.Fee,
		entry.Destination,
		entry.Meta,
		createdAt,
	).Scan(&recordedAt)
	if err != nil {
		return err
	}

	entry.CreatedAt = recordedAt
	return nil
}
