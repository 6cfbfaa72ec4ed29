// invitation_repository.go implements InvitationRepository over sqlx,
// providing queries for pending project invites.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prism-hq/prism-server/internal/db/models"
)

// InvitationRepository handles database operations for invitations
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create inserts an invitation row
func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (project_id, email, role, token_hash, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		inv.ProjectID, inv.Email, string(inv.Role), inv.TokenHash, inv.InvitedBy, inv.ExpiresAt,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// GetByID retrieves an invitation by ID
func (r *InvitationRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	query := `
		SELECT id, project_id, email, role, token_hash, invited_by, expires_at, accepted_at, created_at
		FROM invitations
		WHERE id = $1
	`
	var inv models.Invitation
	err := r.db.GetContext(ctx, &inv, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &inv, nil
}

// ListPendingByProject retrieves unaccepted, unexpired invitations for a project
func (r *InvitationRepository) ListPendingByProject(ctx context.Context, projectID string) ([]*models.Invitation, error) {
	query := `
		SELECT id, project_id, email, role, token_hash, invited_by, expires_at, accepted_at, created_at
		FROM invitations
		WHERE project_id = $1 AND accepted_at IS NULL AND expires_at > NOW()
		ORDER BY created_at ASC
	`
	invitations := make([]*models.Invitation, 0)
	if err := r.db.SelectContext(ctx, &invitations, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// DeleteExpired removes unaccepted invitations whose expiry has passed,
// returning the number of rows removed. Accepted invitations are kept as a
// record of how each membership came to exist.
func (r *InvitationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM invitations WHERE accepted_at IS NULL AND expires_at < NOW()`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	return res.RowsAffected()
}

// MarkAccepted records the acceptance time on an invitation
func (r *InvitationRepository) MarkAccepted(ctx context.Context, id string) error {
	query := `UPDATE invitations SET accepted_at = NOW() WHERE id = $1 AND accepted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark invitation accepted: %w", err)
	}
	return nil
}
