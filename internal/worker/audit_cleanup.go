package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/cliniccare-api/pkg/logger"
)

type AuditPruner interface {
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

// AuditCleanupWorker deletes audit entries older than the retention window.
type AuditCleanupWorker struct {
	audits          AuditPruner
	retentionDays   int
	cleanupInterval time.Duration
	logger          *logger.Logger
	now             func() time.Time
}

func NewAuditCleanupWorker(audits AuditPruner, retentionDays int, cleanupInterval time.Duration, logger *logger.Logger) *AuditCleanupWorker {
	return &AuditCleanupWorker{
		audits:          audits,
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		logger:          logger.With("component", "audit_cleanup"),
		now:             time.Now,
	}
}

func (w *AuditCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Cleanup(ctx); err != nil {
				w.logger.Error(err, "Error cleaning up audit logs")
			}
		}
	}
}

func (w *AuditCleanupWorker) Cleanup(ctx context.Context) (int64, error) {
	cutoff := w.now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.audits.Cleanup(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	w.logger.Info("Cleaned up audit logs", "deleted", rows, "cutoff", cutoff.Format(time.RFC3339))
	return rows, nil
}
