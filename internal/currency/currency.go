package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol identifies a currency or coin ("EUR", "BTC", ...). It is the join
// key between wallets, the coins table and the price history, so it is
// always stored and compared in its normalized uppercase form.
type Symbol string

func NewSymbol(s string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(s)))
}

func (s Symbol) String() string {
	return string(s)
}

// Euro is the quote currency of the whole system; every coin price is
// expressed in EUR.
const Euro = Symbol("EUR")

// FeeSchedule maps a currency to its fixed withdrawal fee. The ledger never
// derives fees itself; callers look them up here and pass them in.
type FeeSchedule struct {
	fees       map[Symbol]decimal.Decimal
	defaultFee decimal.Decimal
}

func NewFeeSchedule(fees map[Symbol]decimal.Decimal, defaultFee decimal.Decimal) *FeeSchedule {
	normalized := make(map[Symbol]decimal.Decimal, len(fees))
	for symbol, fee := range fees {
		normalized[NewSymbol(string(symbol))] = fee
	}

	return &FeeSchedule{
		fees:       normalized,
		defaultFee: defaultFee,
	}
}

func (fs *FeeSchedule) WithdrawalFee(symbol Symbol) decimal.Decimal {
	if fee, ok := fs.fees[NewSymbol(string(symbol))]; ok {
		return fee
	}

	return fs.defaultFee
}

// DefaultFeeSchedule reproduces the production fee table: a flat 0.0001 BTC
// for bitcoin withdrawals and 0.50 units for everything else.
func DefaultFeeSchedule() *FeeSchedule {
	return NewFeeSchedule(map[Symbol]decimal.Decimal{
		"BTC": decimal.RequireFromString("0.0001"),
	}, decimal.RequireFromString("0.50"))
}
