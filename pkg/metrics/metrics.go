package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Mining metrics
	BlocksMined      prometheus.Counter
	MiningDuration   *prometheus.HistogramVec
	HashAttempts     prometheus.Counter
	ChainHeight      prometheus.Gauge
	IntegrityChecks  *prometheus.CounterVec

	// Contract metrics
	ContractExecutions *prometheus.CounterVec
	GasUsed            prometheus.Counter
	AuditEvents        *prometheus.CounterVec
	ActiveTokens       prometheus.Gauge
	TokensExpired      prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		BlocksMined: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "blocks_mined_total",
			Help:      "Total number of blocks mined and appended to the chain",
		}),
		MiningDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "mining_duration_seconds",
			Help:      "Time spent mining a single block",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30, 60},
		}, []string{"difficulty", "profile"}),
		HashAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hash_attempts_total",
			Help:      "Total number of nonce attempts across all mining runs",
		}),
		ChainHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chain_height",
			Help:      "Current number of blocks in the chain",
		}),
		IntegrityChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "integrity_checks_total",
			Help:      "Merkle and chain integrity checks by outcome",
		}, []string{"check", "outcome"}),
		ContractExecutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "contract_executions_total",
			Help:      "Contract function executions by operation and status",
		}, []string{"operation", "status"}),
		GasUsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "contract_gas_used_total",
			Help:      "Synthetic gas charged across all contract executions",
		}),
		AuditEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audit_events_total",
			Help:      "Audit events appended, by action",
		}, []string{"action"}),
		ActiveTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_access_tokens",
			Help:      "Access tokens currently in active status",
		}),
		TokensExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "access_tokens_expired_total",
			Help:      "Access tokens swept from active to expired",
		}),
	}
}
