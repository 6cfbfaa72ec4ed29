// Package models - project.go defines the Project model representing a tenant
// workspace, the unit of access control for all customer data.
package models

import "time"

// Project represents an isolated customer workspace
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
