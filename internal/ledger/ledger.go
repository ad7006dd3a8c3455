// Package ledger provides atomic, invariant-preserving balance mutations
// and their append-only audit trail. Every successful credit or debit
// changes exactly one wallet and records exactly one transaction, as a
// single unit.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cradoe/galpe/internal/currency"
	"github.com/cradoe/galpe/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrInvalidFee      = errors.New("fee cannot be negative")
	ErrInvalidKind     = errors.New("unknown transaction type")
	ErrUnknownCurrency = errors.New("unknown currency")
)

// InsufficientFundsError reports a rejected debit: the requested amount plus
// fee exceeded the wallet balance. Nothing was mutated.
type InsufficientFundsError struct {
	Currency currency.Symbol
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %s %s, have %s",
		e.Required.String(), e.Currency, e.Balance.String())
}

// Clock supplies record timestamps so tests can run without wall-clock
// dependence. A nil Clock means time.Now.
type Clock func() time.Time

// Entry describes one requested balance change. ID and CreatedAt are
// optional: a blank ID gets a generated one, a zero CreatedAt means "now"
// (seed/import callers backdate records by setting it).
type Entry struct {
	ID          string
	Type        string
	Currency    currency.Symbol
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Destination string
	Meta        map[string]any
	CreatedAt   time.Time
}

type Ledger struct {
	wallets      repository.WalletRepository
	transactions repository.TransactionRepository
	entries      repository.LedgerRepository
	clock        Clock
}

func New(wallets repository.WalletRepository, transactions repository.TransactionRepository, entries repository.LedgerRepository, clock Clock) *Ledger {
	if clock == nil {
		clock = time.Now
	}

	return &Ledger{
		wallets:      wallets,
		transactions: transactions,
		entries:      entries,
		clock:        clock,
	}
}

// Balance returns the wallet amount for the pair; a pair the user never
// held reads as zero.
func (l *Ledger) Balance(userID string, symbol currency.Symbol) (decimal.Decimal, error) {
	return l.wallets.Balance(userID, currency.NewSymbol(symbol.String()))
}

// Credit atomically increases the wallet by entry.Amount and records the
// transaction. It never rejects a valid positive amount: funds can always
// be added.
func (l *Ledger) Credit(userID string, entry Entry) (decimal.Decimal, *repository.Transaction, error) {
	record, err := l.buildRecord(userID, entry)
	if err != nil {
		return decimal.Zero, nil, err
	}

	newBalance, err := l.entries.Credit(record)
	if err != nil {
		return decimal.Zero, nil, err
	}

	return newBalance, record, nil
}

// Debit atomically decreases the wallet by entry.Amount plus entry.Fee and
// records the transaction with amount and fee kept separate. A shortfall
// returns an InsufficientFundsError and leaves wallet and log untouched.
func (l *Ledger) Debit(userID string, entry Entry) (decimal.Decimal, *repository.Transaction, error) {
	record, err := l.buildRecord(userID, entry)
	if err != nil {
		return decimal.Zero, nil, err
	}

	newBalance, ok, err := l.entries.Debit(record)
	if err != nil {
		return decimal.Zero, nil, err
	}

	if !ok {
		return decimal.Zero, nil, &InsufficientFundsError{
			Currency: currency.NewSymbol(entry.Currency.String()),
			Balance:  newBalance,
			Required: record.Amount.Add(record.Fee),
		}
	}

	return newBalance, record, nil
}

// Transactions returns the user's most recent records, newest first. A
// non-positive limit falls back to 50.
func (l *Ledger) Transactions(userID string, limit int) ([]repository.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	return l.transactions.GetAllByUserID(userID, limit)
}

func (l *Ledger) buildRecord(userID string, entry Entry) (*repository.Transaction, error) {
	if !validKind(entry.Type) {
		return nil, ErrInvalidKind
	}

	if entry.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	if entry.Fee.IsNegative() {
		return nil, ErrInvalidFee
	}

	symbol := currency.NewSymbol(entry.Currency.String())
	if symbol == "" {
		return nil, ErrUnknownCurrency
	}

	record := &repository.Transaction{
		ID:       entry.ID,
		UserID:   userID,
		Type:     entry.Type,
		Currency: symbol.String(),
		Amount:   entry.Amount,
		Fee:      entry.Fee,
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if entry.Destination != "" {
		record.Destination.String = entry.Destination
		record.Destination.Valid = true
	}

	if entry.Meta != nil {
		meta, err := json.Marshal(entry.Meta)
		if err != nil {
			return nil, err
		}
		record.Meta = types.JSONText(meta)
	}

	record.CreatedAt = entry.CreatedAt
	if record.CreatedAt.IsZero() {
		record.CreatedAt = l.clock()
	}

	return record, nil
}

func validKind(kind string) bool {
	switch kind {
	case repository.TransactionTypeDeposit,
		repository.TransactionTypeWithdraw,
		repository.TransactionTypeTradeBuy,
		repository.TransactionTypeTradeSell:
		return true
	}

	return false
}
