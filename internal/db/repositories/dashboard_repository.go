// dashboard_repository.go implements DashboardRepository over sqlx, providing
// per-project dashboard CRUD. Authorization happens above this layer; every
// query is already scoped to a project id.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prism-hq/prism-server/internal/db/models"
)

// DashboardRepository handles database operations for dashboards
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository creates a new dashboard repository
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Create inserts a dashboard row
func (r *DashboardRepository) Create(ctx context.Context, d *models.Dashboard) error {
	if len(d.Definition) == 0 {
		d.Definition = json.RawMessage(`{}`)
	}
	query := `
		INSERT INTO dashboards (project_id, name, definition, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, d.ProjectID, d.Name, []byte(d.Definition), d.CreatedBy).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}
	return nil
}

// GetByID retrieves a dashboard scoped to a project
func (r *DashboardRepository) GetByID(ctx context.Context, projectID, id string) (*models.Dashboard, error) {
	query := `
		SELECT id, project_id, name, definition, created_by, created_at, updated_at
		FROM dashboards
		WHERE project_id = $1 AND id = $2
	`
	var d models.Dashboard
	err := r.db.GetContext(ctx, &d, query, projectID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}
	return &d, nil
}

// ListByProject retrieves all dashboards in a project
func (r *DashboardRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Dashboard, error) {
	query := `
		SELECT id, project_id, name, definition, created_by, created_at, updated_at
		FROM dashboards
		WHERE project_id = $1
		ORDER BY created_at ASC
	`
	dashboards := make([]*models.Dashboard, 0)
	if err := r.db.SelectContext(ctx, &dashboards, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	return dashboards, nil
}

// Update persists a new name and definition
func (r *DashboardRepository) Update(ctx context.Context, d *models.Dashboard) error {
	query := `
		UPDATE dashboards
		SET name = $3, definition = $4, updated_at = NOW()
		WHERE project_id = $1 AND id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, d.ProjectID, d.ID, d.Name, []byte(d.Definition)).
		Scan(&d.UpdatedAt)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("failed to update dashboard: %w", err)
	}
	return nil
}

// Delete removes a dashboard scoped to a project
func (r *DashboardRepository) Delete(ctx context.Context, projectID, id string) (bool, error) {
	query := `DELETE FROM dashboards WHERE project_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, projectID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete dashboard: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
