// report_repository.go implements ReportRepository over sqlx, providing
// per-project report CRUD. Report definitions are stored verbatim; the
// computation pipeline that evaluates them lives outside this service.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prism-hq/prism-server/internal/db/models"
)

// ReportRepository handles database operations for reports
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a report row
func (r *ReportRepository) Create(ctx context.Context, rep *models.Report) error {
	if len(rep.Definition) == 0 {
		rep.Definition = json.RawMessage(`{}`)
	}
	query := `
		INSERT INTO reports (project_id, name, definition, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, rep.ProjectID, rep.Name, []byte(rep.Definition), rep.CreatedBy).
		Scan(&rep.ID, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetByID retrieves a report scoped to a project
func (r *ReportRepository) GetByID(ctx context.Context, projectID, id string) (*models.Report, error) {
	query := `
		SELECT id, project_id, name, definition, created_by, created_at, updated_at
		FROM reports
		WHERE project_id = $1 AND id = $2
	`
	var rep models.Report
	err := r.db.GetContext(ctx, &rep, query, projectID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &rep, nil
}

// ListByProject retrieves all reports in a project
func (r *ReportRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Report, error) {
	query := `
		SELECT id, project_id, name, definition, created_by, created_at, updated_at
		FROM reports
		WHERE project_id = $1
		ORDER BY created_at ASC
	`
	reports := make([]*models.Report, 0)
	if err := r.db.SelectContext(ctx, &reports, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, nil
}

// Update persists a new name and definition
func (r *ReportRepository) Update(ctx context.Context, rep *models.Report) error {
	query := `
		UPDATE reports
		SET name = $3, definition = $4, updated_at = NOW()
		WHERE project_id = $1 AND id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, rep.ProjectID, rep.ID, rep.Name, []byte(rep.Definition)).
		Scan(&rep.UpdatedAt)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	return nil
}

// Delete removes a report scoped to a project
func (r *ReportRepository) Delete(ctx context.Context, projectID, id string) (bool, error) {
	query := `DELETE FROM reports WHERE project_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, projectID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
