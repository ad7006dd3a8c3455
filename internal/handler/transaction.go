package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cradoe/galpe/internal/context"
	"github.com/cradoe/galpe/internal/errHandler"
	"github.com/cradoe/galpe/internal/ledger"
	"github.com/cradoe/galpe/internal/repository"
	"github.com/cradoe/galpe/internal/response"

	"github.com/shopspring/decimal"
)

type TransactionResponseData struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	Fee         decimal.Decimal `json:"fee"`
	Destination string          `json:"destination,omitempty"`
	Meta        json.RawMessage `json:"meta,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type TransactionHandler struct {
	Ledger          *ledger.Ledger
	TransactionRepo repository.TransactionRepository
	ErrHandler      *errHandler.ErrorHandler
}

func NewTransactionHandler(handler *TransactionHandler) *TransactionHandler {
	return &TransactionHandler{
		Ledger:          handler.Ledger,
		TransactionRepo: handler.TransactionRepo,
		ErrHandler:      handler.ErrHandler,
	}
}

// HandleTransactionHistory returns the authenticated user's most recent
// transactions, newest first.
func (h *TransactionHandler) HandleTransactionHistory(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	transactions, err := h.Ledger.Transactions(user.ID, limit)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	count, err := h.TransactionRepo.CountByUserID(user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := make([]*TransactionResponseData, len(transactions))
	for i, transaction := range transactions {
		data[i] = &TransactionResponseData{
			ID:          transaction.ID,
			Type:        transaction.Type,
			Currency:    transaction.Currency,
			Amount:      transaction.Amount,
			Fee:         transaction.Fee,
			Destination: transaction.Destination.String,
			Meta:        json.RawMessage(transaction.Meta),
			CreatedAt:   transaction.CreatedAt,
		}
	}

	message := "Transactions fetched successfully"
	err = response.JSONOkResponse(w, map[string]any{
		"transactions": data,
		"total_count":  count,
	}, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
