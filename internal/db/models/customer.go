// Package models - customer.go defines the customer-data models: profiles and
// events. These rows are written by the ingestion pipeline (outside this
// service); the API only reads them, gated by profile:read / event:read.
package models

import (
	"encoding/json"
	"time"
)

// Profile represents a customer profile tracked within a project
type Profile struct {
	ID         string          `db:"id" json:"id"`
	ProjectID  string          `db:"project_id" json:"project_id"`
	ExternalID string          `db:"external_id" json:"external_id"`
	Traits     json.RawMessage `db:"traits" json:"traits"`
	FirstSeen  time.Time       `db:"first_seen" json:"first_seen"`
	LastSeen   time.Time       `db:"last_seen" json:"last_seen"`
}

// Event represents a customer event tracked within a project
type Event struct {
	ID         string          `db:"id" json:"id"`
	ProjectID  string          `db:"project_id" json:"project_id"`
	ProfileID  *string         `db:"profile_id" json:"profile_id"`
	Name       string          `db:"name" json:"name"`
	Properties json.RawMessage `db:"properties" json:"properties"`
	OccurredAt time.Time       `db:"occurred_at" json:"occurred_at"`
}
