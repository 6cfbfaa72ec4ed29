// Package projects implements the tenant membership resolver: project
// creation, membership lookup, and the privileged role-update and
// member-removal operations with their tenant-integrity invariants.
//
// The guard chains in UpdateMemberRole and RemoveMember are sequential on
// purpose. Callers depend on the specific failure produced when several
// preconditions fail at once (not-found always wins over authorization,
// authorization always wins over the last-owner check), so the checks must
// not be collapsed into a combined boolean.
package projects

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prism-hq/prism-server/internal/apperrors"
	"github.com/prism-hq/prism-server/internal/db/models"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/rbac"
)

// Service implements membership lifecycle rules over the project repository.
type Service struct {
	projectRepo *repositories.ProjectRepository
}

// NewService creates a projects service.
func NewService(projectRepo *repositories.ProjectRepository) *Service {
	return &Service{projectRepo: projectRepo}
}

// CreateProject creates a project and its owner membership atomically. The
// creator becomes owner. Name validation happens at the API boundary; any
// string is accepted here.
func (s *Service) CreateProject(ctx context.Context, ownerUserID, name string) (*models.Project, error) {
	project, _, err := s.projectRepo.CreateWithOwner(ctx, name, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	slog.Info("project created", "project_id", project.ID, "owner_id", ownerUserID)
	return project, nil
}

// GetProject retrieves a project by id, nil when it does not exist.
func (s *Service) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, projectID)
}

// GetUserProjects returns every project the user is a member of. An empty
// slice, not an error, when there are none.
func (s *Service) GetUserProjects(ctx context.Context, userID string) ([]*models.Project, error) {
	return s.projectRepo.GetUserProjects(ctx, userID)
}

// GetRole resolves the user's role in a project, nil when no membership
// exists. Satisfies rbac.RoleResolver.
func (s *Service) GetRole(ctx context.Context, userID, projectID string) (*rbac.Role, error) {
	membership, err := s.projectRepo.GetMembership(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, nil
	}
	role := membership.Role
	return &role, nil
}

// HasAccess reports whether the user holds any membership in the project.
// True exactly when GetRole resolves a role.
func (s *Service) HasAccess(ctx context.Context, userID, projectID string) (bool, error) {
	role, err := s.GetRole(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return role != nil, nil
}

// SwitchActiveProject verifies the user may select the project as their
// active tenant. Persisting the selection into the session is the caller's
// responsibility.
func (s *Service) SwitchActiveProject(ctx context.Context, userID, projectID string) error {
	ok, err := s.HasAccess(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.AccessDenied("You do not have access to this project")
	}
	return nil
}

// ListMembers returns the project's memberships joined with public user
// identity, ordered by membership creation time ascending.
func (s *Service) ListMembers(ctx context.Context, projectID string) ([]*models.MembershipWithUser, error) {
	return s.projectRepo.ListMembersWithUsers(ctx, projectID)
}

// UpdateMemberRole changes the role on a membership. Guards, in order:
// membership must exist; the requester must be an owner of that membership's
// project; the target must not itself be an owner (owners cannot be demoted
// through this path, not even by themselves).
func (s *Service) UpdateMemberRole(ctx context.Context, requestingUserID, membershipID string, newRole rbac.Role) error {
	target, err := s.projectRepo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if target == nil {
		return apperrors.NotFound("Membership not found")
	}

	requesterRole, err := s.GetRole(ctx, requestingUserID, target.ProjectID)
	if err != nil {
		return err
	}
	if requesterRole == nil || *requesterRole != rbac.RoleOwner {
		return apperrors.AccessDenied("Only owners can update member roles")
	}

	if target.Role == rbac.RoleOwner {
		return apperrors.InvariantViolation("Cannot modify owner role")
	}

	if err := s.projectRepo.UpdateMembershipRole(ctx, membershipID, newRole); err != nil {
		return err
	}

	slog.Info("member role updated",
		"project_id", target.ProjectID,
		"membership_id", membershipID,
		"new_role", newRole,
		"requested_by", requestingUserID,
	)
	return nil
}

// RemoveMember deletes a membership. Guards, in order: membership must exist;
// the requester must be an owner or admin of that project; an admin may never
// remove an owner; the last owner may never be removed.
func (s *Service) RemoveMember(ctx context.Context, requestingUserID, membershipID string) error {
	target, err := s.projectRepo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return err
	}
	if target == nil {
		return apperrors.NotFound("Membership not found")
	}

	requesterRole, err := s.GetRole(ctx, requestingUserID, target.ProjectID)
	if err != nil {
		return err
	}
	if requesterRole == nil || (*requesterRole != rbac.RoleOwner && *requesterRole != rbac.RoleAdmin) {
		return apperrors.AccessDenied("Only owners and admins can remove members")
	}

	if *requesterRole == rbac.RoleAdmin && target.Role == rbac.RoleOwner {
		return apperrors.AccessDenied("Admins cannot remove owners")
	}

	if target.Role == rbac.RoleOwner {
		owners, err := s.projectRepo.CountOwners(ctx, target.ProjectID)
		if err != nil {
			return err
		}
		if owners == 1 {
			return apperrors.InvariantViolation("Cannot remove the last owner from the project")
		}
	}

	if err := s.projectRepo.DeleteMembership(ctx, membershipID); err != nil {
		return err
	}

	slog.Info("member removed",
		"project_id", target.ProjectID,
		"membership_id", membershipID,
		"removed_user_id", target.UserID,
		"requested_by", requestingUserID,
	)
	return nil
}
