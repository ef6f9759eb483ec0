package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medledger/chain-api/internal/config"
	"github.com/medledger/chain-api/internal/contract"
	authHandler "github.com/medledger/chain-api/internal/handler/auth"
	chainHandler "github.com/medledger/chain-api/internal/handler/chain"
	contractHandler "github.com/medledger/chain-api/internal/handler/contract"
	healthHandler "github.com/medledger/chain-api/internal/handler/health"
	"github.com/medledger/chain-api/internal/ledger"
	"github.com/medledger/chain-api/internal/middleware"
	"github.com/medledger/chain-api/internal/router"
	"github.com/medledger/chain-api/internal/worker"
	"github.com/medledger/chain-api/pkg/auth"
	"github.com/medledger/chain-api/pkg/logger"
	"github.com/medledger/chain-api/pkg/messaging"
	"github.com/medledger/chain-api/pkg/messaging/redis"
	"github.com/medledger/chain-api/pkg/metrics"
	"github.com/medledger/chain-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	// Redis is optional; audit events fall back to a noop broker.
	var broker messaging.Broker = messaging.NewNoopBroker()
	if cfg.Redis.Enabled {
		broker, err = redis.NewRedisBroker(redis.Config{URL: cfg.Redis.URL}, appLogger.Zerolog())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
	}

	m := metrics.NewMetrics("medledger", "api")

	chainLedger := ledger.New(appLogger, m)
	manager := contract.NewManager(appLogger, m, broker)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	hasher := security.NewBcryptHasher(0)

	accounts := make(map[string]authHandler.Account, len(cfg.Auth.Operators))
	for _, op := range cfg.Auth.Operators {
		accounts[op.UserID] = authHandler.Account{
			PasswordHash: op.PasswordHash,
			Role:         op.Role,
		}
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	r := router.NewRouter(
		appLogger,
		authMiddleware,
		healthHandler.NewHandler(chainLedger),
		authHandler.NewHandler(accounts, hasher, jwtService),
		chainHandler.NewHandler(chainLedger),
		contractHandler.NewHandler(manager),
		router.Config{
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "medledger_api",
		},
	)
	r.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	retention := worker.NewRetentionWorker(
		manager,
		cfg.Contract.AuditRetentionDays,
		cfg.Contract.SweepInterval(),
		appLogger,
	)
	go retention.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.Timeout(),
		WriteTimeout: cfg.Server.Timeout(),
	}

	go func() {
		appLogger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
