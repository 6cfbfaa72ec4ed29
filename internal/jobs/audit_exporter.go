// audit_exporter.go implements the AuditExporter background job, which tails
// the audit_logs table and ships new entries to the configured external
// destinations. The database row is always written first by the service that
// performed the action; this job only copies rows outward, so a crashed or
// slow destination can never lose or block an audit write. The cursor is the
// created_at timestamp of the last shipped entry and lives in memory: after a
// restart the job resumes from its start time rather than re-shipping
// history.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/prism-hq/prism-server/internal/audit"
	"github.com/prism-hq/prism-server/internal/db/repositories"
)

const exportBatchSize = 500

// AuditExporter periodically ships new audit entries to external destinations.
type AuditExporter struct {
	auditRepo *repositories.AuditRepository
	shipper   *audit.MultiShipper
	interval  time.Duration
	cursor    time.Time
	stopChan  chan struct{}
}

// NewAuditExporter creates an audit exporter. A non-positive interval
// defaults to one minute.
func NewAuditExporter(auditRepo *repositories.AuditRepository, shipper *audit.MultiShipper, interval time.Duration) *AuditExporter {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AuditExporter{
		auditRepo: auditRepo,
		shipper:   shipper,
		interval:  interval,
		cursor:    time.Now(),
		stopChan:  make(chan struct{}),
	}
}

// Start runs the export loop until ctx is cancelled or Stop is called. It is
// a no-op when no destinations are configured.
func (e *AuditExporter) Start(ctx context.Context) {
	if e.shipper == nil || e.shipper.Empty() {
		slog.Info("audit exporter: no destinations configured, not starting")
		return
	}

	slog.Info("audit exporter started", "interval", e.interval)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.exportOnce(ctx)
		case <-ctx.Done():
			return
		case <-e.stopChan:
			return
		}
	}
}

// Stop signals the loop to exit.
func (e *AuditExporter) Stop() {
	close(e.stopChan)
}

// exportOnce ships every entry created since the cursor, advancing the cursor
// past each shipped entry. A failed ship leaves the cursor on the failed
// entry so the next pass retries it.
func (e *AuditExporter) exportOnce(ctx context.Context) {
	for {
		entries, err := e.auditRepo.ListCreatedAfter(ctx, e.cursor, exportBatchSize)
		if err != nil {
			slog.Error("audit exporter: failed to list entries", "error", err)
			return
		}
		if len(entries) == 0 {
			return
		}

		for _, entry := range entries {
			if err := e.shipper.Ship(ctx, entry); err != nil {
				slog.Warn("audit exporter: ship failed, will retry",
					"audit_id", entry.ID,
					"error", err,
				)
				return
			}
			e.cursor = entry.CreatedAt
		}

		if len(entries) < exportBatchSize {
			return
		}
	}
}
