// Package models - invitation.go defines the Invitation model for pending
// project invites. Only the bcrypt hash of the invite token is stored; the
// raw token travels in the invite email (delivered by an external system).
package models

import (
	"time"

	"github.com/prism-hq/prism-server/internal/rbac"
)

// Invitation represents a pending invite for an email address to join a
// project with a given role.
type Invitation struct {
	ID         string     `db:"id" json:"id"`
	ProjectID  string     `db:"project_id" json:"project_id"`
	Email      string     `db:"email" json:"email"`
	Role       rbac.Role  `db:"role" json:"role"`
	TokenHash  string     `db:"token_hash" json:"-"`
	InvitedBy  string     `db:"invited_by" json:"invited_by"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	AcceptedAt *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Pending reports whether the invitation can still be accepted.
func (i *Invitation) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
