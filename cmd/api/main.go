package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recycle-marketplace/config"
	httpHandler "recycle-marketplace/internal/adapter/http/handler"
	pgStorage "recycle-marketplace/internal/adapter/storage/postgres"
	redisStorage "recycle-marketplace/internal/adapter/storage/redis"
	"recycle-marketplace/internal/core/ports"
	"recycle-marketplace/internal/service"
	"recycle-marketplace/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Recycle Marketplace API")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	userRepo := pgStorage.NewUserRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	accountRepo := pgStorage.NewWalletAccountRepo(pool)
	ledgerRepo := pgStorage.NewLedgerRepo(pool)
	notifRepo := pgStorage.NewNotificationRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idemCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.RefreshExpiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, log)
	notifySvc := service.NewNotificationService(notifRepo, log)
	ledgerSvc := service.NewLedgerService(accountRepo, ledgerRepo, log)
	settleSvc := service.NewSettlementService(ledgerSvc, log)

	// Initialize business services
	authSvc := service.NewAuthService(userRepo, accountRepo, tokenSvc, hashSvc, notifySvc, auditSvc, log)
	orderSvc := service.NewOrderService(
		orderRepo,
		userRepo,
		settleSvc,
		notifySvc,
		transactor,
		cfg.Order.MinCancelReasonLen,
		cfg.Order.NotifyRetries,
		log,
	)
	walletSvc := service.NewWalletService(
		accountRepo,
		ledgerRepo,
		orderRepo,
		ledgerSvc,
		notifySvc,
		transactor,
		idemCache,
		auditSvc,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		OrderSvc:       orderSvc,
		WalletSvc:      walletSvc,
		NotifySvc:      notifySvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
