// Package simulation implements super-admin access simulation: an
// allow-listed admin identity can assume access to any project without a
// membership record. Entry is guarded by an ordered precondition chain and
// always leaves an audit trail; exit restores a clean authenticated session.
//
// The allow-list is injected once at construction from configuration, never
// read from the process environment at call time, so the component is
// deterministic under test.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/prism-hq/prism-server/internal/apperrors"
	"github.com/prism-hq/prism-server/internal/db/models"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/session"
)

// ActionSimulationStart is the audit action tag written on simulation entry.
const ActionSimulationStart = "super_admin.access_simulation.start"

// Service implements access-simulation entry and exit.
type Service struct {
	userRepo    *repositories.UserRepository
	projectRepo *repositories.ProjectRepository
	auditRepo   *repositories.AuditRepository
	allowList   map[string]struct{}
}

// NewService creates a simulation service. allowedEmails is the configured
// super-admin allow-list; matching is exact and case-sensitive.
func NewService(
	userRepo *repositories.UserRepository,
	projectRepo *repositories.ProjectRepository,
	auditRepo *repositories.AuditRepository,
	allowedEmails []string,
) *Service {
	allowList := make(map[string]struct{}, len(allowedEmails))
	for _, email := range allowedEmails {
		allowList[email] = struct{}{}
	}
	return &Service{
		userRepo:    userRepo,
		projectRepo: projectRepo,
		auditRepo:   auditRepo,
		allowList:   allowList,
	}
}

// Start validates the ordered entry preconditions and, on success, mutates
// sess into the impersonating state. The caller persists the session.
// Guards, first failure wins:
//  1. the session must carry a resolvable identity (Unauthenticated);
//  2. the resolved email must be on the allow-list (AccessDenied);
//  3. the project id argument must be a structurally valid id (BadRequest);
//  4. the project must exist (NotFound).
//
// Re-entry while already impersonating is rejected rather than silently
// overwriting the original user id.
func (s *Service) Start(ctx context.Context, sess *session.Session, projectID, clientIP string) error {
	if !sess.Authenticated() {
		return apperrors.Unauthenticated("No active session")
	}

	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.Unauthenticated("No active session")
	}

	if _, ok := s.allowList[user.Email]; !ok {
		slog.Warn("access simulation denied", "user_id", user.ID, "ip", clientIP)
		return apperrors.AccessDenied("You are not authorized to use access simulation")
	}

	if sess.Impersonating() {
		return apperrors.BadRequest("Access simulation is already active")
	}

	if projectID == "" {
		return apperrors.BadRequest("Project id is required")
	}
	if _, err := uuid.Parse(projectID); err != nil {
		return apperrors.BadRequest("Project id is invalid")
	}

	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		return apperrors.NotFound("Project not found")
	}

	now := time.Now().UTC()
	entry := &models.AuditLog{
		UserID:    &user.ID,
		ProjectID: &project.ID,
		Action:    ActionSimulationStart,
		Metadata: map[string]interface{}{
			"project_name": project.Name,
			"timestamp":    now.Format(time.RFC3339),
		},
	}
	if clientIP != "" {
		entry.IPAddress = &clientIP
	}
	// The audit trail is the point of this feature: if it cannot be written,
	// simulation must not start.
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	originalID := user.ID
	targetID := project.ID
	sess.OriginalUserID = &originalID
	sess.SuperAdminMode = true
	sess.SimulatedProjectID = &targetID
	sess.ActiveProjectID = &targetID

	slog.Info("access simulation started",
		"admin_id", user.ID,
		"project_id", project.ID,
		"ip", clientIP,
	)
	return nil
}

// Exit leaves the impersonating state. It reports whether the session
// changed, so the caller knows whether anything needs persisting. A session
// that is not validly impersonating (including one with a stray
// SuperAdminMode flag but no original user id) is left untouched.
func (s *Service) Exit(sess *session.Session) bool {
	if !sess.Impersonating() {
		return false
	}

	slog.Info("access simulation ended", "admin_id", *sess.OriginalUserID)

	sess.ActiveProjectID = nil
	sess.OriginalUserID = nil
	sess.SuperAdminMode = false
	sess.SimulatedProjectID = nil
	return true
}
