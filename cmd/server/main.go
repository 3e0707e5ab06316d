package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payments-service/config"
	"payments-service/internal/events"
	"payments-service/internal/handler"
	"payments-service/internal/provider/paystack"
	"payments-service/internal/repository"
	"payments-service/internal/router"
	"payments-service/internal/usecase"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("starting payments service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.Bool("gateway_configured", cfg.Paystack.SecretKey != ""))

	dbPool, err := pgxpool.New(context.Background(), cfg.Database.ConnString())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("connected to database", zap.String("database", cfg.Database.DBName))

	// Repositories
	transactionRepo := repository.NewTransactionRepository(dbPool)
	walletRepo := repository.NewWalletRepository(dbPool)
	ticketRepo := repository.NewTicketRepository(dbPool)
	eventRepo := repository.NewEventRepository(dbPool)
	bookingRepo := repository.NewBookingRepository(dbPool)

	// Gateway
	gateway := paystack.NewClient(paystack.Config{
		SecretKey:     cfg.Paystack.SecretKey,
		WebhookSecret: cfg.Paystack.WebhookSecret,
		BaseURL:       cfg.Paystack.BaseURL,
	}, logger)

	// Lifecycle event publishing is optional; without Redis the publisher
	// is a no-op.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.Info("transaction event publishing enabled", zap.String("redis_addr", cfg.Redis.Addr))
	}
	publisher := events.NewPublisher(rdb, logger)

	// Usecases
	paymentUC := usecase.NewPaymentUsecase(
		transactionRepo,
		walletRepo,
		ticketRepo,
		eventRepo,
		bookingRepo,
		gateway,
		cfg.Fees,
		publisher,
		cfg.PublicBaseURL,
		logger,
	)

	// Handlers
	paymentHandler := handler.NewPaymentHandler(paymentUC, logger)
	webhookHandler := handler.NewWebhookHandler(paymentUC, gateway, logger)

	r := router.SetupRoutes(paymentHandler, webhookHandler, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("payments service started",
		zap.String("port", cfg.Server.Port),
		zap.String("environment", cfg.Server.Env))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
