package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/cradoe/galpe/internal/app"
	"github.com/cradoe/galpe/internal/seeder"
	"github.com/cradoe/galpe/internal/version"
	"github.com/cradoe/galpe/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	showVersion := flag.Bool("version", false, "display version and exit")
	seed := flag.Bool("seed", false, "seed coins and demo account, then exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	application, err := app.NewApplication(logger)
	if err != nil {
		return err
	}
	defer application.DB.Close()
	defer application.Cache.Close()

	if *seed {
		return seeder.New(application.DB, logger).Run()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wk := worker.New(&worker.Worker{
		KafkaStream: application.Kafka,
		DB:          application.DB,
		Ctx:         ctx,
		Helper:      application.Helper,
		Mailer:      application.Mailer,
		Logger:      logger,
	})

	go wk.TransactionAlertWorker()
	go application.PriceWorker.Start(ctx)

	return application.ServeHTTP()
}
