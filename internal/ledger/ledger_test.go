package ledger

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cradoe/galpe/internal/currency"
	"github.com/cradoe/galpe/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memState backs the fake repositories with a single guarded map, mirroring
// the contract of the SQL store: balance reads see zero for missing pairs,
// and debits apply the conditional subtract and the record append as one
// locked step.
type memState struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	records  []repository.Transaction
}

func newMemState() *memState {
	return &memState{balances: make(map[string]decimal.Decimal)}
}

func key(userID, cur string) string {
	return userID + "|" + cur
}

type memWalletRepo struct{ state *memState }

func (r *memWalletRepo) Balance(userID string, symbol currency.Symbol) (decimal.Decimal, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	return r.state.balances[key(userID, symbol.String())], nil
}

func (r *memWalletRepo) GetAllByUserID(userID string) ([]repository.Wallet, error) {
	return nil, nil
}

type memTransactionRepo struct{ state *memState }

func (r *memTransactionRepo) GetAllByUserID(userID string, limit int) ([]repository.Transaction, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	var out []repository.Transaction
	for _, record := range r.state.records {
		if record.UserID == userID {
			out = append(out, record)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *memTransactionRepo) CountByUserID(userID string) (int, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	count := 0
	for _, record := range r.state.records {
		if record.UserID == userID {
			count++
		}
	}

	return count, nil
}

type memLedgerRepo struct{ state *memState }

func (r *memLedgerRepo) Credit(entry *repository.Transaction) (decimal.Decimal, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	k := key(entry.UserID, entry.Currency)
	next := r.state.balances[k].Add(entry.Amount)
	r.state.balances[k] = next
	r.state.records = append(r.state.records, *entry)

	return next, nil
}

func (r *memLedgerRepo) Debit(entry *repository.Transaction) (decimal.Decimal, bool, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()

	k := key(entry.UserID, entry.Currency)
	balance := r.state.balances[k]
	total := entry.Amount.Add(entry.Fee)

	if balance.LessThan(total) {
		return balance, false, nil
	}

	next := balance.Sub(total)
	r.state.balances[k] = next
	r.state.records = append(r.state.records, *entry)

	return next, true, nil
}

func newTestLedger(clock Clock) (*Ledger, *memState) {
	state := newMemState()
	l := New(&memWalletRepo{state}, &memTransactionRepo{state}, &memLedgerRepo{state}, clock)
	return l, state
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDepositWithdrawScenario(t *testing.T) {
	l, state := newTestLedger(nil)

	balance, record, err := l.Credit("user-1", Entry{
		Type:     repository.TransactionTypeDeposit,
		Currency: "EUR",
		Amount:   dec("100"),
	})
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("100")))
	require.Equal(t, repository.TransactionTypeDeposit, record.Type)
	require.True(t, record.Fee.IsZero())
	require.Len(t, state.records, 1)

	// overdraw attempt leaves everything untouched
	_, _, err = l.Debit("user-1", Entry{
		Type:     repository.TransactionTypeWithdraw,
		Currency: "EUR",
		Amount:   dec("150"),
	})

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Balance.Equal(dec("100")))
	require.True(t, insufficient.Required.Equal(dec("150")))
	require.Len(t, state.records, 1)

	balance, err = l.Balance("user-1", "EUR")
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("100")))

	// withdrawal with a fee debits amount+fee but records them separately
	balance, record, err = l.Debit("user-1", Entry{
		Type:     repository.TransactionTypeWithdraw,
		Currency: "EUR",
		Amount:   dec("50"),
		Fee:      dec("0.5"),
	})
	require.NoError(t, err)
	require.True(t, balance.Equal(dec("49.5")))
	require.True(t, record.Amount.Equal(dec("50")))
	require.True(t, record.Fee.Equal(dec("0.5")))
	require.Len(t, state.records, 2)
}

func TestDebitFeePushesTotalOverBalance(t *testing.T) {
	l, state := newTestLedger(nil)

	_, _, err := l.Credit("user-1", Entry{
		Type:     repository.TransactionTypeDeposit,
		Currency: "btc",
		Amount:   dec("0.0001"),
	})
	require.NoError(t, err)

	// 0.00005 + 0.0001 fee = 0.00015 > 0.0001
	_, _, err = l.Debit("user-1", Entry{
		Type:     repository.TransactionTypeWithdraw,
		Currency: "BTC",
		Amount:   dec("0.00005"),
		Fee:      dec("0.0001"),
	})

	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, currency.Symbol("BTC"), insufficient.Currency)
	require.Len(t, state.records, 1)
}

func TestBalanceConservation(t *testing.T) {
	l, _ := newTestLedger(nil)

	credits := []string{"25", "100.40", "3.1"}
	debits := [][2]string{{"10", "0.5"}, {"40.25", "0"}}

	expected := decimal.Zero
	for _, c := range credits {
		_, _, err := l.Credit("user-1", Entry{
			Type:     repository.TransactionTypeDeposit,
			Currency: "EUR",
			Amount:   dec(c),
		})
		require.NoError(t, err)
		expected = expected.Add(dec(c))
	}

	for _, d := range debits {
		_, _, err := l.Debit("user-1", Entry{
			Type:     repository.TransactionTypeWithdraw,
			Currency: "EUR",
			Amount:   dec(d[0]),
			Fee:      dec(d[1]),
		})
		require.NoError(t, err)
		expected = expected.Sub(dec(d[0])).Sub(dec(d[1]))
	}

	balance, err := l.Balance("user-1", "EUR")
	require.NoError(t, err)
	require.True(t, balance.Equal(expected))
	require.False(t, balance.IsNegative())
}

func TestAuditTrailReproducesBalance(t *testing.T) {
	l, _ := newTestLedger(nil)

	_, _, err := l.Credit("user-1", Entry{Type: repository.TransactionTypeDeposit, Currency: "EUR", Amount: dec("200")})
	require.NoError(t, err)
	_, _, err = l.Debit("user-1", Entry{Type: repository.TransactionTypeWithdraw, Currency: "EUR", Amount: dec("60"), Fee: dec("0.5")})
	require.NoError(t, err)
	_, _, err = l.Credit("user-1", Entry{Type: repository.TransactionTypeTradeSell, Currency: "EUR", Amount: dec("15.25")})
	require.NoError(t, err)

	records, err := l.Transactions("user-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// replaying signed effects must land exactly on the stored balance
	replayed := decimal.Zero
	for _, record := range records {
		switch record.Type {
		case repository.TransactionTypeDeposit, repository.TransactionTypeTradeSell:
			replayed = replayed.Add(record.Amount)
		case repository.TransactionTypeWithdraw, repository.TransactionTypeTradeBuy:
			replayed = replayed.Sub(record.Amount).Sub(record.Fee)
		}
	}

	balance, err := l.Balance("user-1", "EUR")
	require.NoError(t, err)
	require.True(t, balance.Equal(replayed))
}

func TestConcurrentDebitsSingleWinner(t *testing.T) {
	l, state := newTestLedger(nil)

	_, _, err := l.Credit("user-1", Entry{
		Type:     repository.TransactionTypeDeposit,
		Currency: "EUR",
		Amount:   dec("100"),
	})
	require.NoError(t, err)

	const workers = 16

	var wg sync.WaitGroup
	results := make(chan error, workers)

	// every debit requests the full balance, so only one can win
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := l.Debit("user-1", Entry{
				Type:     repository.TransactionTypeWithdraw,
				Currency: "EUR",
				Amount:   dec("100"),
			})
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}

		var insufficient *InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		rejected++
	}

	require.Equal(t, 1, succeeded)
	require.Equal(t, workers-1, rejected)

	balance, err := l.Balance("user-1", "EUR")
	require.NoError(t, err)
	require.True(t, balance.IsZero())
	require.Len(t, state.records, 2)
}

func TestRejectsInvalidInput(t *testing.T) {
	l, state := newTestLedger(nil)

	_, _, err := l.Credit("user-1", Entry{Type: repository.TransactionTypeDeposit, Currency: "EUR", Amount: decimal.Zero})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = l.Debit("user-1", Entry{Type: repository.TransactionTypeWithdraw, Currency: "EUR", Amount: dec("-5")})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = l.Debit("user-1", Entry{Type: repository.TransactionTypeWithdraw, Currency: "EUR", Amount: dec("5"), Fee: dec("-1")})
	require.ErrorIs(t, err, ErrInvalidFee)

	_, _, err = l.Credit("user-1", Entry{Type: "refund", Currency: "EUR", Amount: dec("5")})
	require.ErrorIs(t, err, ErrInvalidKind)

	_, _, err = l.Credit("user-1", Entry{Type: repository.TransactionTypeDeposit, Currency: "  ", Amount: dec("5")})
	require.ErrorIs(t, err, ErrUnknownCurrency)

	// rejected requests never touch the store
	require.Empty(t, state.records)
}

func TestRecordDefaultsAndOverrides(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l, _ := newTestLedger(func() time.Time { return fixed })

	_, record, err := l.Credit("user-1", Entry{
		Type:     repository.TransactionTypeDeposit,
		Currency: "eur",
		Amount:   dec("10"),
		Meta:     map[string]any{"status": "completed"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, record.ID)
	require.Equal(t, "EUR", record.Currency)
	require.Equal(t, fixed, record.CreatedAt)
	require.JSONEq(t, `{"status":"completed"}`, string(record.Meta))

	backdated := fixed.AddDate(0, -1, 0)
	_, record, err = l.Credit("user-1", Entry{
		ID:          "tx-imported-1",
		Type:        repository.TransactionTypeDeposit,
		Currency:    "EUR",
		Amount:      dec("5"),
		Destination: "ES91 2100 0418 4502 0005 1332",
		CreatedAt:   backdated,
	})
	require.NoError(t, err)
	require.Equal(t, "tx-imported-1", record.ID)
	require.Equal(t, backdated, record.CreatedAt)
	require.True(t, record.Destination.Valid)
}

func TestTransactionsLimit(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	l, _ := newTestLedger(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	for i := 0; i < 5; i++ {
		_, _, err := l.Credit("user-1", Entry{
			Type:     repository.TransactionTypeDeposit,
			Currency: "EUR",
			Amount:   dec("1"),
		})
		require.NoError(t, err)
	}

	records, err := l.Transactions("user-1", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// newest first
	require.True(t, records[0].CreatedAt.After(records[1].CreatedAt))
	require.True(t, records[1].CreatedAt.After(records[2].CreatedAt))
}
