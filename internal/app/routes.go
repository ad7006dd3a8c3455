package app

import (
	"net/http"

	"github.com/cradoe/galpe/internal/handler"
	"github.com/cradoe/galpe/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.ErrorHandler, app.Logger, app.DB.User(), &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.ErrorHandler)

	authHandler := handler.NewAuthHandler(&handler.AuthHandler{
		DB:         app.DB,
		UserRepo:   app.DB.User(),
		ErrHandler: app.ErrorHandler,
		Helper:     app.Helper,
		Mailer:     app.Mailer,
		Config:     &app.Config,
	})

	walletHandler := handler.NewWalletHandler(&handler.WalletHandler{
		Ledger:     app.Ledger,
		WalletRepo: app.DB.Wallet(),
		CoinRepo:   app.DB.Coin(),
		Fees:       app.Fees,
		Kafka:      app.Kafka,
		Helper:     app.Helper,
		ErrHandler: app.ErrorHandler,
	})

	transactionHandler := handler.NewTransactionHandler(&handler.TransactionHandler{
		Ledger:          app.Ledger,
		TransactionRepo: app.DB.Transaction(),
		ErrHandler:      app.ErrorHandler,
	})

	coinHandler := handler.NewCoinHandler(&handler.CoinHandler{
		CoinRepo:    app.DB.Coin(),
		HistoryRepo: app.DB.PriceHistory(),
		Cache:       app.Cache,
		FeedStatus:  app.PriceWorker,
		ErrHandler:  app.ErrorHandler,
	})

	mux.HandleFunc("GET /health", healthHandler.HandleHealthCheck)

	mux.HandleFunc("POST /auth/register", authHandler.HandleAuthRegister)
	mux.HandleFunc("POST /auth/login", authHandler.HandleAuthLogin)

	mux.HandleFunc("GET /coins", coinHandler.HandleListCoins)
	mux.HandleFunc("GET /coins/{symbol}", coinHandler.HandleCoinDetails)
	mux.HandleFunc("GET /coins/{symbol}/chart", coinHandler.HandleCoinChart)

	mux.Handle("GET /wallet/balances", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleUserBalances)))
	mux.Handle("POST /wallet/deposit", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleDeposit)))
	mux.Handle("POST /wallet/withdraw", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(walletHandler.HandleWithdraw)))

	mux.Handle("GET /transactions", middlewareRepo.RequireAuthenticatedUser(http.HandlerFunc(transactionHandler.HandleTransactionHistory)))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
