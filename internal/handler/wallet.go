package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/cradoe/galpe/internal/context"
	"github.com/cradoe/galpe/internal/currency"
	"github.com/cradoe/galpe/internal/errHandler"
	"github.com/cradoe/galpe/internal/helper"
	"github.com/cradoe/galpe/internal/ledger"
	"github.com/cradoe/galpe/internal/repository"
	"github.com/cradoe/galpe/internal/request"
	"github.com/cradoe/galpe/internal/response"
	"github.com/cradoe/galpe/internal/stream"
	"github.com/cradoe/galpe/internal/validator"

	"github.com/shopspring/decimal"
)

const transactionCompletedTopic = "transaction.completed"

type BalanceResponseData struct {
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CompletedTransaction is the event published after a successful credit or
// debit. The alert worker consumes it to email the account holder.
type CompletedTransaction struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Email      string          `json:"email"`
	FirstName  string          `json:"first_name"`
	Type       string          `json:"type"`
	Currency   string          `json:"currency"`
	Amount     decimal.Decimal `json:"amount"`
	Fee        decimal.Decimal `json:"fee"`
	NewBalance decimal.Decimal `json:"new_balance"`
	CreatedAt  time.Time       `json:"created_at"`
}

type WalletHandler struct {
	Ledger     *ledger.Ledger
	WalletRepo repository.WalletRepository
	CoinRepo   repository.CoinRepository
	Fees       *currency.FeeSchedule
	Kafka      *stream.KafkaStream
	Helper     *helper.HelperRepository
	ErrHandler *errHandler.ErrorHandler
}

func NewWalletHandler(handler *WalletHandler) *WalletHandler {
	return &WalletHandler{
		Ledger:     handler.Ledger,
		WalletRepo: handler.WalletRepo,
		CoinRepo:   handler.CoinRepo,
		Fees:       handler.Fees,
		Kafka:      handler.Kafka,
		Helper:     handler.Helper,
		ErrHandler: handler.ErrHandler,
	}
}

func (h *WalletHandler) HandleUserBalances(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	wallets, err := h.WalletRepo.GetAllByUserID(user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := make([]*BalanceResponseData, len(wallets))
	for i, wallet := range wallets {
		data[i] = &BalanceResponseData{
			Currency:  wallet.Currency,
			Balance:   wallet.Amount,
			UpdatedAt: wallet.UpdatedAt,
		}
	}

	message := "Balances fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// Deposits always succeed for a valid amount; there is no upper bound on how
// much a wallet can hold.
func (h *WalletHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Currency  string              `json:"currency"`
		Amount    decimal.Decimal     `json:"amount"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Currency), "Currency is required")
	input.Validator.Check(input.Amount.GreaterThan(decimal.Zero), "Amount must be greater than zero")

	symbol := currency.NewSymbol(input.Currency)

	known, err := h.knownCurrency(symbol)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	input.Validator.Check(known, "Unknown currency")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	newBalance, record, err := h.Ledger.Credit(user.ID, ledger.Entry{
		Type:     repository.TransactionTypeDeposit,
		Currency: symbol,
		Amount:   input.Amount,
		Meta:     map[string]any{"status": "completed"},
	})
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.publishCompleted(r, user, record, newBalance)

	message := "Deposit completed successfully"
	data := map[string]any{
		"transaction_id": record.ID,
		"currency":       record.Currency,
		"amount":         record.Amount,
		"new_balance":    newBalance,
	}
	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// Withdrawals debit the amount plus a fixed per-currency fee in one atomic
// step. A balance short of amount+fee rejects the whole request and leaves
// the wallet untouched.
func (h *WalletHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Currency    string              `json:"currency"`
		Amount      decimal.Decimal     `json:"amount"`
		Destination string              `json:"destination"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Currency), "Currency is required")
	input.Validator.Check(input.Amount.GreaterThan(decimal.Zero), "Amount must be greater than zero")
	input.Validator.Check(len(input.Destination) >= 6, "Destination address is too short")

	symbol := currency.NewSymbol(input.Currency)

	known, err := h.knownCurrency(symbol)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	input.Validator.Check(known, "Unknown currency")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	fee := h.Fees.WithdrawalFee(symbol)

	newBalance, record, err := h.Ledger.Debit(user.ID, ledger.Entry{
		Type:        repository.TransactionTypeWithdraw,
		Currency:    symbol,
		Amount:      input.Amount,
		Fee:         fee,
		Destination: input.Destination,
		Meta:        map[string]any{"status": "completed"},
	})
	if err != nil {
		var insufficientFunds *ledger.InsufficientFundsError
		if errors.As(err, &insufficientFunds) {
			response.JSONErrorResponse(w, nil, insufficientFunds.Error(), http.StatusUnprocessableEntity, nil)
			return
		}

		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.publishCompleted(r, user, record, newBalance)

	message := "Withdrawal completed successfully"
	data := map[string]any{
		"transaction_id": record.ID,
		"currency":       record.Currency,
		"amount":         record.Amount,
		"fee":            record.Fee,
		"new_balance":    newBalance,
	}
	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// knownCurrency accepts EUR and any listed coin.
func (h *WalletHandler) knownCurrency(symbol currency.Symbol) (bool, error) {
	if symbol == currency.Euro {
		return true, nil
	}

	_, found, err := h.CoinRepo.GetBySymbol(symbol)
	if err != nil {
		return false, err
	}

	return found, nil
}

func (h *WalletHandler) publishCompleted(r *http.Request, user *repository.User, record *repository.Transaction, newBalance decimal.Decimal) {
	if h.Kafka == nil {
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		event := &CompletedTransaction{
			ID:         record.ID,
			UserID:     user.ID,
			Email:      user.Email,
			FirstName:  user.FirstName,
			Type:       record.Type,
			Currency:   record.Currency,
			Amount:     record.Amount,
			Fee:        record.Fee,
			NewBalance: newBalance,
			CreatedAt:  record.CreatedAt,
		}

		jsonMessage, err := json.Marshal(event)
		if err != nil {
			return err
		}

		err = h.Kafka.ProduceMessage(transactionCompletedTopic, string(jsonMessage))
		if err != nil {
			log.Printf("Error publishing transaction event: %v", err)
			return err
		}

		return nil
	})
}
