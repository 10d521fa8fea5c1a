package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardledger/payments-service/internal/application"
	"github.com/cardledger/payments-service/internal/application/services"
	"github.com/cardledger/payments-service/internal/config"
	"github.com/cardledger/payments-service/internal/infrastructure/persistence/memory"
	"github.com/cardledger/payments-service/internal/infrastructure/persistence/postgres"
	"github.com/cardledger/payments-service/internal/infrastructure/rabbitmq"
	"github.com/cardledger/payments-service/internal/interfaces/rest/handlers"
	"github.com/cardledger/payments-service/internal/interfaces/rest/middleware"
	"github.com/cardledger/payments-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payments service",
		"port", cfg.Server.Port,
		"database_backend", cfg.Database.Backend,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()

	var (
		uow         application.UnitOfWork
		cards       application.CardStore
		settlements application.SettlementStore
	)
	if cfg.Database.Backend == config.BackendMemory {
		store := memory.NewStore()
		uow, cards, settlements = store, store, store
	} else {
		db, err := postgres.Connect(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Error("failed to apply database schema", "error", err)
			os.Exit(1)
		}

		uow = postgres.NewUnitOfWork(db)
		cards = postgres.NewCardRepository(db)
		settlements = postgres.NewSettlementRepository(db)
	}

	broker, err := rabbitmq.Dial(cfg.RabbitMQ, logger)
	if err != nil {
		logger.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	publisher := rabbitmq.NewPublisher(broker, cfg.RabbitMQ.Exchange, logger)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	processor := services.NewPaymentProcessor(uow, settlements, publisher, metrics, logger)
	cardService := services.NewCardService(cards, logger)

	h := handlers.NewHandlers(processor, cardService, logger)
	router := h.Router(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	handler := middleware.Recovery(logger)(router)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	consumer := rabbitmq.NewConsumer(broker, cfg.RabbitMQ, processor, logger)

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()

	consumerDone := make(chan struct{})
	go func() {
		consumer.Start(consumerCtx)
		close(consumerDone)
	}()

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Wait for in-flight deliveries to settle before the broker
	// connection goes away.
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Error("consumer did not drain before shutdown deadline")
	}

	logger.Info("server exited")
}
