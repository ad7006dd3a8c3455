// Package seeder fills a fresh database with the coin listing and a demo
// account so the API is usable straight after migration.
package seeder

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/cradoe/galpe/internal/currency"
	"github.com/cradoe/galpe/internal/ledger"
	"github.com/cradoe/galpe/internal/repository"

	"github.com/cradoe/gopass"
	"github.com/shopspring/decimal"
)

const (
	demoEmail    = "demo@galpe.exchange"
	demoPassword = "Demo-pa55word!"
)

type seedCoin struct {
	symbol    string
	name      string
	iconColor string
	// staticPrice pre-fills coins the price feed cannot quote
	staticPrice float64
}

var listedCoins = []seedCoin{
	{symbol: "BTC", name: "Bitcoin", iconColor: "#F7931A"},
	{symbol: "ETH", name: "Ethereum", iconColor: "#627EEA"},
	{symbol: "XRP", name: "Ripple", iconColor: "#23292F"},
	{symbol: "SOL", name: "Solana", iconColor: "#9945FF"},
	{symbol: "BNB", name: "BNB", iconColor: "#F3BA2F"},
	{symbol: "ADA", name: "Cardano", iconColor: "#0033AD"},
	{symbol: "RWA", name: "RWA Token", iconColor: "#2E7D32", staticPrice: 0.85},
	{symbol: "DEPIN", name: "DePIN Token", iconColor: "#1565C0", staticPrice: 1.20},
}

type Seeder struct {
	DB     repository.Database
	Logger *slog.Logger
}

func New(db repository.Database, logger *slog.Logger) *Seeder {
	return &Seeder{
		DB:     db,
		Logger: logger,
	}
}

func (s *Seeder) Run() error {
	if err := s.seedCoins(); err != nil {
		return err
	}

	return s.seedDemoAccount()
}

func (s *Seeder) seedCoins() error {
	coinRepo := s.DB.Coin()

	for _, seed := range listedCoins {
		coin := &repository.Coin{
			Symbol:    seed.symbol,
			Name:      seed.name,
			IconColor: sql.NullString{String: seed.iconColor, Valid: true},
		}

		if seed.staticPrice > 0 {
			coin.PriceEur = sql.NullFloat64{Float64: seed.staticPrice, Valid: true}
			coin.Change24h = sql.NullFloat64{Float64: 0, Valid: true}
		}

		if err := coinRepo.Insert(coin, nil); err != nil {
			return err
		}
	}

	s.Logger.Info("seeded coins", "count", len(listedCoins))
	return nil
}

// seedDemoAccount creates a demo user with funded wallets and a few
// backdated transactions so the history endpoint has something to show.
// Running the seeder twice is a no-op.
func (s *Seeder) seedDemoAccount() error {
	userRepo := s.DB.User()

	_, found, err := userRepo.GetByEmail(demoEmail)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	hashedPassword, err := gopass.Hash(demoPassword)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	userID, err := userRepo.Insert(&repository.User{
		FirstName:      "Demo",
		LastName:       "User",
		Email:          demoEmail,
		HashedPassword: hashedPassword,
	}, tx)
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	book := ledger.New(s.DB.Wallet(), s.DB.Transaction(), s.DB.Ledger(), nil)

	now := time.Now()
	deposits := []struct {
		currency currency.Symbol
		amount   string
		daysAgo  int
	}{
		{currency.Euro, "10000", 14},
		{"BTC", "0.5", 10},
		{"ETH", "4.25", 7},
		{currency.Euro, "2500", 2},
	}

	for _, deposit := range deposits {
		_, _, err = book.Credit(userID, ledger.Entry{
			Type:      repository.TransactionTypeDeposit,
			Currency:  deposit.currency,
			Amount:    decimal.RequireFromString(deposit.amount),
			Meta:      map[string]any{"status": "completed"},
			CreatedAt: now.AddDate(0, 0, -deposit.daysAgo),
		})
		if err != nil {
			return err
		}
	}

	s.Logger.Info("seeded demo account", "email", demoEmail)
	return nil
}
