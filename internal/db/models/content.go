// Package models - content.go defines the project-scoped content models:
// dashboards, reports, and segments. Definitions are opaque JSON documents;
// the server stores and gates them but never interprets them (report
// computation happens in a separate pipeline).
package models

import (
	"encoding/json"
	"time"
)

// Dashboard represents a saved dashboard within a project
type Dashboard struct {
	ID         string          `db:"id" json:"id"`
	ProjectID  string          `db:"project_id" json:"project_id"`
	Name       string          `db:"name" json:"name"`
	Definition json.RawMessage `db:"definition" json:"definition"`
	CreatedBy  string          `db:"created_by" json:"created_by"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// Report represents a saved report within a project
type Report struct {
	ID         string          `db:"id" json:"id"`
	ProjectID  string          `db:"project_id" json:"project_id"`
	Name       string          `db:"name" json:"name"`
	Definition json.RawMessage `db:"definition" json:"definition"`
	CreatedBy  string          `db:"created_by" json:"created_by"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// Segment represents a saved audience segment within a project
type Segment struct {
	ID         string          `db:"id" json:"id"`
	ProjectID  string          `db:"project_id" json:"project_id"`
	Name       string          `db:"name" json:"name"`
	Definition json.RawMessage `db:"definition" json:"definition"`
	CreatedBy  string          `db:"created_by" json:"created_by"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}
