// segment_repository.go implements SegmentRepository over sqlx, providing
// per-project audience segment CRUD.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prism-hq/prism-server/internal/db/models"
)

// SegmentRepository handles database operations for segments
type SegmentRepository struct {
	db *sqlx.DB
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db *sqlx.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// Create inserts a segment row
func (r *SegmentRepository) Create(ctx context.Context, s *models.Segment) error {
	if len(s.Definition) == 0 {
		s.Definition = json.RawMessage(`{}`)
	}
	query := `
		INSERT INTO segments (project_id, name, definition, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, s.ProjectID, s.Name, []byte(s.Definition), s.CreatedBy).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create segment: %w", err)
	}
	return nil
}

// GetByID retrieves a segment scoped to a project
func (r *SegmentRepository) GetByID(ctx context.Context, projectID, id string) (*models.Segment, error) {
	query := `
		SELECT id, project_id, name, definition, created_by, created_at, updated_at
		FROM segments
		WHERE project_id = $1 AND id = $2
	`
	var s models.Segment
	err := r.db.GetContext(ctx, &s, query, projectID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}
	return &s, nil
}

// ListByProject retrieves all segments in a project
func (r *SegmentRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Segment, error) {
	query := `
		SELECT id, project_id, name, definition, created_by, created_at, updated_at
		FROM segments
		WHERE project_id = $1
		ORDER BY created_at ASC
	`
	segments := make([]*models.Segment, 0)
	if err := r.db.SelectContext(ctx, &segments, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

// Update persists a new name and definition
func (r *SegmentRepository) Update(ctx context.Context, s *models.Segment) error {
	query := `
		UPDATE segments
		SET name = $3, definition = $4, updated_at = NOW()
		WHERE project_id = $1 AND id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query, s.ProjectID, s.ID, s.Name, []byte(s.Definition)).
		Scan(&s.UpdatedAt)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("failed to update segment: %w", err)
	}
	return nil
}

// Delete removes a segment scoped to a project
func (r *SegmentRepository) Delete(ctx context.Context, projectID, id string) (bool, error) {
	query := `DELETE FROM segments WHERE project_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, projectID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete segment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
