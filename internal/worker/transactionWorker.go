package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/cradoe/galpe/internal/handler"
	"github.com/cradoe/galpe/internal/stream"
)

// TransactionAlertWorker emails the account holder a receipt for every
// completed transaction.
func (wk *Worker) TransactionAlertWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: transactionAlertGroupID,
		Topic:   TransactionCompletedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}

	for {
		event := consumer.Poll(100) // Poll every 100ms
		switch e := event.(type) {
		case *kafka.Message:
			var completed handler.CompletedTransaction
			if err := json.Unmarshal(e.Value, &completed); err != nil {
				log.Printf("Error decoding transaction event: %v", err)
				continue
			}

			wk.sendTransactionAlert(&completed)
		case kafka.Error:
			log.Printf("Error: %v\n", e)
		default:
			// Handle other events if needed
		}
	}
}

func (wk *Worker) sendTransactionAlert(completed *handler.CompletedTransaction) {
	emailData := wk.Helper.NewEmailData()
	emailData["Name"] = completed.FirstName
	emailData["Type"] = completed.Type
	emailData["Currency"] = completed.Currency
	emailData["Amount"] = completed.Amount.String()
	emailData["Fee"] = completed.Fee.String()
	emailData["NewBalance"] = completed.NewBalance.String()
	emailData["Reference"] = completed.ID
	emailData["Date"] = completed.CreatedAt.Format("02 Jan 2006 15:04")

	err := wk.Mailer.Send(completed.Email, emailData, "transaction-alert.tmpl")
	if err != nil {
		log.Printf("Error sending transaction alert: %v", err)
	}
}
