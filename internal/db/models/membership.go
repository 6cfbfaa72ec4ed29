// Package models - membership.go defines models for user-to-project
// membership, including the enriched view joining public user identity for
// member listings.
package models

import (
	"time"

	"github.com/prism-hq/prism-server/internal/rbac"
)

// Membership represents a user's membership in a project. A (user, project)
// pair has at most one membership, and a project always retains at least one
// owner membership.
type Membership struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      rbac.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// MembershipWithUser includes the member's public identity for display
type MembershipWithUser struct {
	Membership
	User PublicIdentity `json:"user"`
}
