package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cradoe/galpe/internal/cache"
	"github.com/cradoe/galpe/internal/config"
	"github.com/cradoe/galpe/internal/currency"
	"github.com/cradoe/galpe/internal/env"
	"github.com/cradoe/galpe/internal/errHandler"
	"github.com/cradoe/galpe/internal/helper"
	"github.com/cradoe/galpe/internal/ledger"
	"github.com/cradoe/galpe/internal/provider"
	"github.com/cradoe/galpe/internal/repository"
	"github.com/cradoe/galpe/internal/smtp"
	"github.com/cradoe/galpe/internal/stream"
	"github.com/cradoe/galpe/internal/worker"

	"github.com/joho/godotenv"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	ErrorHandler *errHandler.ErrorHandler
	Helper       *helper.HelperRepository
	Kafka        *stream.KafkaStream
	Cache        *cache.Cache
	Ledger       *ledger.Ledger
	Fees         *currency.FeeSchedule
	PriceWorker  *worker.PriceWorker
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "Galpe Exchange <no_reply@example.org>")

	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")
	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")

	// an empty PRICE_FEED_API_KEY leaves the feed unconfigured
	cfg.PriceFeed.Provider = env.GetString("PRICE_FEED_PROVIDER", "coinmarketcap")
	cfg.PriceFeed.ApiKey = env.GetString("PRICE_FEED_API_KEY", "")
	cfg.PriceFeed.ApiSecret = env.GetString("PRICE_FEED_API_SECRET", "")
	cfg.PriceFeed.BaseURL = env.GetString("PRICE_FEED_BASE_URL", "https://pro-api.coinmarketcap.com/v1")
	cfg.PriceFeed.Interval = env.GetDuration("PRICE_FEED_INTERVAL", worker.DefaultPriceInterval)

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	errorHandler := errHandler.New(cfg.Notifications.Email, cfg.BaseURL, mailer, logger)

	kafkaStream := stream.New(cfg.KafkaServers)

	redisCache := cache.New(cfg.RedisServer, 0)

	app := &Application{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Mailer:       mailer,
		ErrorHandler: errorHandler,
		Kafka:        kafkaStream,
		Cache:        redisCache,
		Fees:         currency.DefaultFeeSchedule(),
	}

	app.Helper = helper.New(&app.Config.BaseURL, &app.WG, errorHandler)

	app.Ledger = ledger.New(db.Wallet(), db.Transaction(), db.Ledger(), nil)

	app.PriceWorker = worker.NewPriceWorker(&worker.PriceWorker{
		Provider:    newQuoteProvider(&cfg),
		CoinRepo:    db.Coin(),
		HistoryRepo: db.PriceHistory(),
		Cache:       redisCache,
		KafkaStream: kafkaStream,
		Logger:      logger,
		Interval:    cfg.PriceFeed.Interval,
	})

	return app, nil
}

func newQuoteProvider(cfg *config.Config) provider.QuoteProvider {
	if cfg.PriceFeed.ApiKey == "" {
		return nil
	}

	switch cfg.PriceFeed.Provider {
	case "binance":
		return provider.NewBinance(cfg.PriceFeed.ApiKey, cfg.PriceFeed.ApiSecret)
	default:
		return provider.NewCoinMarketCap(cfg.PriceFeed.ApiKey, cfg.PriceFeed.BaseURL)
	}
}
