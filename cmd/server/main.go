package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinledger/internal/config"
	"coinledger/internal/db"
	"coinledger/internal/handlers"
	"coinledger/internal/services"
	"coinledger/internal/speech"
	"coinledger/internal/store"
	"coinledger/internal/websocket"

	"go.uber.org/zap"
)

func main() {
	zlog, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = zlog.Sync() }()
	logger := zlog.Sugar()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalw("failed to load configuration", "error", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("failed to connect to database", "error", err)
	}
	defer database.Close()

	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	ledger := store.NewLedgerStore(database)
	usageEvents := store.NewUsageEventStore(database)
	paymentEvents := store.NewPaymentEventStore(database)
	audit := store.NewAuditStore(database)
	admins := store.NewAdminStore(database)

	ledgerService := services.NewLedgerService(txRunner, accounts, ledger, hub)
	provisionService := services.NewProvisionService(txRunner, users, accounts, ledgerService, admins, audit, cfg.WelcomeBonusCoins, logger)
	paymentService := services.NewPaymentService(txRunner, accounts, paymentEvents, ledgerService, audit, hub, cfg.PaymentCreditCoins, logger)
	usageService := services.NewUsageService(txRunner, usageEvents, accounts, ledgerService, audit, hub, logger)

	var synthesizer handlers.Synthesizer
	if cfg.SpeechServiceURL != "" {
		synthesizer = speech.NewClient(cfg.SpeechServiceURL)
	}

	handler := handlers.New(cfg, logger, txRunner, users, accounts, ledger, audit, admins, provisionService, paymentService, usageService, synthesizer, hub)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infow("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
}
