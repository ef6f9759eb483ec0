package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/medledger/chain-api/internal/contract"
	"github.com/medledger/chain-api/pkg/canonical"
	"github.com/medledger/chain-api/pkg/logger"
	"github.com/medledger/chain-api/pkg/messaging"
	"github.com/medledger/chain-api/pkg/messaging/redis"
)

// Config comes from the environment only; the worker runs as a sidecar and
// carries no config file.
type Config struct {
	RedisURL   string `envconfig:"REDIS_URL" required:"true"`
	HealthAddr string `envconfig:"HEALTH_ADDR" default:":8081"`
	Channel    string `envconfig:"AUDIT_CHANNEL" default:"contract.audit"`
}

var (
	consumedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medledger_worker_audit_events_consumed_total",
		Help: "Audit events consumed from the broker, by event type",
	}, []string{"type"})
	decodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medledger_worker_audit_events_invalid_total",
		Help: "Audit events that could not be decoded",
	})
)

func setupHealthCheck(addr string, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.Fatal(err, "health check server failed")
		}
	}()
}

func main() {
	var cfg Config
	if err := envconfig.Process("medledger", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker config")
	}

	appLogger := logger.NewLogger(nil)

	broker, err := redis.NewRedisBroker(redis.Config{URL: cfg.RedisURL}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	setupHealthCheck(cfg.HealthAddr, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Channel == "" {
		cfg.Channel = contract.AuditChannel
	}
	events, err := broker.Subscribe(ctx, cfg.Channel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to audit channel")
	}
	appLogger.Info("audit consumer started", "channel", cfg.Channel)

	go consume(ctx, events, appLogger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutting down")
	cancel()
}

func consume(ctx context.Context, events <-chan []byte, appLogger *logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-events:
			if !ok {
				return
			}
			var msg messaging.Message
			if err := canonical.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
				decodeFailures.Inc()
				continue
			}
			consumedEvents.WithLabelValues(msg.Type).Inc()
			appLogger.Info("audit event consumed", "type", msg.Type)
		}
	}
}
