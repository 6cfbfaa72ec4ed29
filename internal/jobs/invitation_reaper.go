// invitation_reaper.go implements the InvitationReaper background job, which
// periodically deletes expired, unaccepted invitations. Expired invitations
// are already unusable (Accept rejects them), so the reaper is pure hygiene:
// it keeps the pending-invitations listing and the table itself from
// accumulating dead rows.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/prism-hq/prism-server/internal/db/repositories"
)

// InvitationReaper periodically removes expired invitations.
type InvitationReaper struct {
	invitationRepo *repositories.InvitationRepository
	interval       time.Duration
	stopChan       chan struct{}
}

// NewInvitationReaper creates an invitation reaper. A non-positive interval
// defaults to one hour.
func NewInvitationReaper(invitationRepo *repositories.InvitationRepository, interval time.Duration) *InvitationReaper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &InvitationReaper{
		invitationRepo: invitationRepo,
		interval:       interval,
		stopChan:       make(chan struct{}),
	}
}

// Start runs an initial sweep immediately, then repeats on the configured
// interval until ctx is cancelled or Stop is called.
func (r *InvitationReaper) Start(ctx context.Context) {
	slog.Info("invitation reaper started", "interval", r.interval)
	r.reapOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reapOnce(ctx)
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		}
	}
}

// Stop signals the loop to exit.
func (r *InvitationReaper) Stop() {
	close(r.stopChan)
}

func (r *InvitationReaper) reapOnce(ctx context.Context) {
	deleted, err := r.invitationRepo.DeleteExpired(ctx)
	if err != nil {
		slog.Error("invitation reaper: sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("invitation reaper: removed expired invitations", "count", deleted)
	}
}
