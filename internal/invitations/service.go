// Package invitations implements the project invite flow: an owner or admin
// invites an email address with a role, and accepting the invite creates the
// membership. Email delivery is an external collaborator — this service
// produces the invite and logs it, it does not send mail.
package invitations

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/prism-hq/prism-server/internal/apperrors"
	"github.com/prism-hq/prism-server/internal/db/models"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/rbac"
	"github.com/prism-hq/prism-server/internal/session"
)

// TTL is how long an invitation can be accepted.
const TTL = 7 * 24 * time.Hour

// Service implements invitation creation and acceptance.
type Service struct {
	invitationRepo *repositories.InvitationRepository
	projectRepo    *repositories.ProjectRepository
	userRepo       *repositories.UserRepository
}

// NewService creates an invitations service.
func NewService(
	invitationRepo *repositories.InvitationRepository,
	projectRepo *repositories.ProjectRepository,
	userRepo *repositories.UserRepository,
) *Service {
	return &Service{
		invitationRepo: invitationRepo,
		projectRepo:    projectRepo,
		userRepo:       userRepo,
	}
}

// Invite creates an invitation for the email to join the project with the
// given role. Owners are never created through invites. Returns the
// invitation and the raw token that travels in the invite email; only the
// bcrypt hash is stored.
func (s *Service) Invite(ctx context.Context, invitedBy, projectID, email string, role rbac.Role) (*models.Invitation, string, error) {
	if !role.Valid() || role == rbac.RoleOwner {
		return nil, "", apperrors.BadRequest("Invalid role for invitation")
	}
	if email == "" {
		return nil, "", apperrors.BadRequest("Email is required")
	}

	rawToken, err := generateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(rawToken), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash invite token: %w", err)
	}

	inv := &models.Invitation{
		ProjectID: projectID,
		Email:     email,
		Role:      role,
		TokenHash: string(hash),
		InvitedBy: invitedBy,
		ExpiresAt: time.Now().Add(TTL),
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, "", err
	}

	// Delivery is handled by the external email system; the log line is what
	// operators grep for when an invite goes missing.
	slog.Info("invitation created",
		"invitation_id", inv.ID,
		"project_id", projectID,
		"role", role,
		"invited_by", invitedBy,
	)
	return inv, rawToken, nil
}

// ListPending returns the project's open invitations.
func (s *Service) ListPending(ctx context.Context, projectID string) ([]*models.Invitation, error) {
	return s.invitationRepo.ListPendingByProject(ctx, projectID)
}

// Accept redeems an invitation for the authenticated user and creates the
// membership. The accepting user's email must match the invited email, and
// the raw token must match the stored hash. When the user has no active
// project yet, the caller should make the new project active in the session.
func (s *Service) Accept(ctx context.Context, sess *session.Session, invitationID, rawToken string) (*models.Membership, error) {
	if !sess.Authenticated() {
		return nil, apperrors.Unauthenticated("No active session")
	}

	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, apperrors.NotFound("Invitation not found")
	}
	if !inv.Pending(time.Now()) {
		return nil, apperrors.BadRequest("Invitation is no longer valid")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(inv.TokenHash), []byte(rawToken)); err != nil {
		return nil, apperrors.AccessDenied("Invalid invitation token")
	}

	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Unauthenticated("No active session")
	}
	if user.Email != inv.Email {
		return nil, apperrors.AccessDenied("Invitation was issued for a different email address")
	}

	existing, err := s.projectRepo.GetMembership(ctx, user.ID, inv.ProjectID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.BadRequest("You are already a member of this project")
	}

	membership, err := s.projectRepo.AddMember(ctx, inv.ProjectID, user.ID, inv.Role)
	if err != nil {
		return nil, err
	}
	if err := s.invitationRepo.MarkAccepted(ctx, inv.ID); err != nil {
		return nil, err
	}

	slog.Info("invitation accepted",
		"invitation_id", inv.ID,
		"project_id", inv.ProjectID,
		"user_id", user.ID,
		"role", inv.Role,
	)
	return membership, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
