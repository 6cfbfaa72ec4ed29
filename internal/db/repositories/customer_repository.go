// customer_repository.go implements CustomerRepository over sqlx, providing
// read-only queries for customer profiles and events. Rows are written by the
// ingestion pipeline; this service never mutates them.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prism-hq/prism-server/internal/db/models"
)

// CustomerRepository handles read access to customer profiles and events
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// ListProfiles retrieves profiles in a project, most recently seen first
func (r *CustomerRepository) ListProfiles(ctx context.Context, projectID string, limit, offset int) ([]*models.Profile, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, project_id, external_id, traits, first_seen, last_seen
		FROM profiles
		WHERE project_id = $1
		ORDER BY last_seen DESC
		LIMIT $2 OFFSET $3
	`
	profiles := make([]*models.Profile, 0)
	if err := r.db.SelectContext(ctx, &profiles, query, projectID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// GetProfile retrieves a single profile scoped to a project
func (r *CustomerRepository) GetProfile(ctx context.Context, projectID, id string) (*models.Profile, error) {
	query := `
		SELECT id, project_id, external_id, traits, first_seen, last_seen
		FROM profiles
		WHERE project_id = $1 AND id = $2
	`
	var p models.Profile
	err := r.db.GetContext(ctx, &p, query, projectID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// ListEvents retrieves events in a project, newest first, optionally filtered
// by profile.
func (r *CustomerRepository) ListEvents(ctx context.Context, projectID string, profileID *string, limit, offset int) ([]*models.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	events := make([]*models.Event, 0)
	if profileID != nil {
		query := `
			SELECT id, project_id, profile_id, name, properties, occurred_at
			FROM events
			WHERE project_id = $1 AND profile_id = $2
			ORDER BY occurred_at DESC
			LIMIT $3 OFFSET $4
		`
		if err := r.db.SelectContext(ctx, &events, query, projectID, *profileID, limit, offset); err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}
		return events, nil
	}

	query := `
		SELECT id, project_id, profile_id, name, properties, occurred_at
		FROM events
		WHERE project_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &events, query, projectID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
