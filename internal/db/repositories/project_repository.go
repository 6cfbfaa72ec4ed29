// project_repository.go implements ProjectRepository, providing database
// queries for project CRUD and membership management. Project creation and
// the initial owner membership are written in a single transaction: a project
// must never exist without an owner, so if the membership insert fails the
// project row must not survive.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prism-hq/prism-server/internal/db/models"
	"github.com/prism-hq/prism-server/internal/rbac"
)

// ProjectRepository handles database operations for projects and memberships
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// GetByID retrieves a project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	project := &models.Project{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.CreatedAt,
		&project.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// CreateWithOwner creates a project and an owner membership for the creator
// as a single all-or-nothing unit.
func (r *ProjectRepository) CreateWithOwner(ctx context.Context, name, ownerUserID string) (*models.Project, *models.Membership, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	project := &models.Project{Name: name}
	projectQuery := `
		INSERT INTO projects (name)
		VALUES ($1)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, projectQuery, name).Scan(
		&project.ID,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create project: %w", err)
	}

	membership := &models.Membership{
		ProjectID: project.ID,
		UserID:    ownerUserID,
		Role:      rbac.RoleOwner,
	}
	memberQuery := `
		INSERT INTO memberships (project_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err = tx.QueryRowContext(ctx, memberQuery, project.ID, ownerUserID, string(rbac.RoleOwner)).Scan(
		&membership.ID,
		&membership.CreatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit project creation: %w", err)
	}

	return project, membership, nil
}

// UpdateName renames a project
func (r *ProjectRepository) UpdateName(ctx context.Context, projectID, name string) error {
	query := `UPDATE projects SET name = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, projectID, name); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// Delete removes a project and, through cascading constraints, its
// memberships and content.
func (r *ProjectRepository) Delete(ctx context.Context, projectID string) error {
	query := `DELETE FROM projects WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// GetUserProjects retrieves all projects a user is a member of
func (r *ProjectRepository) GetUserProjects(ctx context.Context, userID string) ([]*models.Project, error) {
	query := `
		SELECT p.id, p.name, p.created_at, p.updated_at
		FROM projects p
		INNER JOIN memberships m ON p.id = m.project_id
		WHERE m.user_id = $1
		ORDER BY p.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*models.Project, 0)
	for rows.Next() {
		project := &models.Project{}
		err := rows.Scan(&project.ID, &project.Name, &project.CreatedAt, &project.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// === Membership operations ===

// GetMembership retrieves a user's membership in a project
func (r *ProjectRepository) GetMembership(ctx context.Context, userID, projectID string) (*models.Membership, error) {
	query := `
		SELECT id, project_id, user_id, role, created_at
		FROM memberships
		WHERE user_id = $1 AND project_id = $2
	`

	return r.scanMembership(r.db.QueryRowContext(ctx, query, userID, projectID))
}

// GetMembershipByID retrieves a membership by its own ID
func (r *ProjectRepository) GetMembershipByID(ctx context.Context, membershipID string) (*models.Membership, error) {
	query := `
		SELECT id, project_id, user_id, role, created_at
		FROM memberships
		WHERE id = $1
	`

	return r.scanMembership(r.db.QueryRowContext(ctx, query, membershipID))
}

func (r *ProjectRepository) scanMembership(row *sql.Row) (*models.Membership, error) {
	membership := &models.Membership{}
	var role string
	err := row.Scan(
		&membership.ID,
		&membership.ProjectID,
		&membership.UserID,
		&role,
		&membership.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	membership.Role = rbac.Role(role)
	return membership, nil
}

// AddMember adds a user to a project with the given role
func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID string, role rbac.Role) (*models.Membership, error) {
	query := `
		INSERT INTO memberships (project_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	membership := &models.Membership{ProjectID: projectID, UserID: userID, Role: role}
	err := r.db.QueryRowContext(ctx, query, projectID, userID, string(role)).Scan(
		&membership.ID,
		&membership.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return membership, nil
}

// ListMembersWithUsers retrieves all memberships for a project joined with
// public user identity, ordered by membership creation time ascending.
func (r *ProjectRepository) ListMembersWithUsers(ctx context.Context, projectID string) ([]*models.MembershipWithUser, error) {
	query := `
		SELECT m.id, m.project_id, m.user_id, m.role, m.created_at,
		       u.id, u.email, u.name
		FROM memberships m
		INNER JOIN users u ON m.user_id = u.id
		WHERE m.project_id = $1
		ORDER BY m.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.MembershipWithUser, 0)
	for rows.Next() {
		member := &models.MembershipWithUser{}
		var role string
		err := rows.Scan(
			&member.ID,
			&member.ProjectID,
			&member.UserID,
			&role,
			&member.CreatedAt,
			&member.User.ID,
			&member.User.Email,
			&member.User.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		member.Role = rbac.Role(role)
		members = append(members, member)
	}

	return members, rows.Err()
}

// CountOwners returns the number of owner memberships in a project
func (r *ProjectRepository) CountOwners(ctx context.Context, projectID string) (int, error) {
	query := `SELECT COUNT(*) FROM memberships WHERE project_id = $1 AND role = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, projectID, string(rbac.RoleOwner)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}
	return count, nil
}

// UpdateMembershipRole persists a new role on a membership
func (r *ProjectRepository) UpdateMembershipRole(ctx context.Context, membershipID string, role rbac.Role) error {
	query := `UPDATE memberships SET role = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, membershipID, string(role)); err != nil {
		return fmt.Errorf("failed to update membership role: %w", err)
	}
	return nil
}

// DeleteMembership removes a membership row
func (r *ProjectRepository) DeleteMembership(ctx context.Context, membershipID string) error {
	query := `DELETE FROM memberships WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, membershipID); err != nil {
		return fmt.Errorf("failed to delete membership: %w", err)
	}
	return nil
}
