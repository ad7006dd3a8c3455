package worker

import (
	"context"
	"log/slog"

	"github.com/cradoe/galpe/internal/helper"
	"github.com/cradoe/galpe/internal/repository"
	"github.com/cradoe/galpe/internal/smtp"
	"github.com/cradoe/galpe/internal/stream"
)

type Worker struct {
	KafkaStream *stream.KafkaStream
	DB          repository.Database
	Ctx         context.Context
	Helper      *helper.HelperRepository
	Mailer      smtp.MailerInterface
	Logger      *slog.Logger
}

const (
	// transactionAlertGroupID is used for workers that email the account holder after a completed transaction
	transactionAlertGroupID = "transaction-alert-group"

	// Topics
	// TransactionCompletedTopic carries every successful credit or debit recorded by the ledger.
	TransactionCompletedTopic = "transaction.completed"

	// PriceUpdatedTopic announces that a price refresh cycle applied new quotes.
	PriceUpdatedTopic = "price.updated"
)

// Our workers typically need access to the database and kafka event stream
// worker-specific dependencies can be passed as argument to the worker
func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream: wk.KafkaStream,
		DB:          wk.DB,
		Ctx:         wk.Ctx,
		Helper:      wk.Helper,
		Mailer:      wk.Mailer,
		Logger:      wk.Logger,
	}
}
