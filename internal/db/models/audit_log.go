// Package models - audit_log.go defines the AuditLog model for recording
// privileged actions, capturing actor, project, action tag, and arbitrary
// metadata. Entries are append-only: the application never mutates or deletes
// them.
package models

import "time"

// AuditLog represents an audit log entry for tracking privileged actions
type AuditLog struct {
	ID        string                 `json:"id"`
	UserID    *string                `json:"user_id"` // Nullable for system actions
	ProjectID *string                `json:"project_id"`
	Action    string                 `json:"action"`     // "super_admin.access_simulation.start", "members.role_update"
	Metadata  map[string]interface{} `json:"metadata"`   // JSONB: additional context
	IPAddress *string                `json:"ip_address"` // Client IP
	CreatedAt time.Time              `json:"created_at"`
}
