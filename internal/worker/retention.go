package worker

import (
	"context"
	"time"

	"github.com/medledger/chain-api/internal/contract"
	"github.com/medledger/chain-api/pkg/logger"
)

// RetentionWorker periodically expires overdue access tokens and trims audit
// entries past the retention window, across every deployed contract.
type RetentionWorker struct {
	manager       *contract.Manager
	retentionDays int
	sweepInterval time.Duration
	log           *logger.Logger
}

func NewRetentionWorker(manager *contract.Manager, retentionDays int, sweepInterval time.Duration, log *logger.Logger) *RetentionWorker {
	return &RetentionWorker{
		manager:       manager,
		retentionDays: retentionDays,
		sweepInterval: sweepInterval,
		log:           log,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *RetentionWorker) sweep() {
	now := time.Now()
	cutoff := now.AddDate(0, 0, -w.retentionDays)

	expired, trimmed := 0, 0
	for _, c := range w.manager.Contracts() {
		expired += c.ExpireTokens(now)
		trimmed += c.TrimAuditLog(cutoff)
	}

	if expired > 0 || trimmed > 0 {
		w.log.Info("retention sweep completed",
			"tokens_expired", expired,
			"audit_entries_trimmed", trimmed,
		)
	}
}
