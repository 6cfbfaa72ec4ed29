// authorizer.go implements permission checks over the matrix. The boolean
// check never fails; the enforcing variant turns a denial into an error with
// a contractual message. This asymmetry is deliberate: absence of permission
// is data for callers that branch on it, and an error only at the boundary of
// a mutating operation.
package rbac

import (
	"context"
	"fmt"

	"github.com/prism-hq/prism-server/internal/apperrors"
)

// RoleResolver resolves a user's role within a project. A nil role means no
// membership exists. Implemented by the projects service.
type RoleResolver interface {
	GetRole(ctx context.Context, userID, projectID string) (*Role, error)
}

// Authorizer decides whether a user may perform an action within a project.
type Authorizer struct {
	resolver RoleResolver
}

// NewAuthorizer creates an Authorizer backed by the given role resolver.
func NewAuthorizer(resolver RoleResolver) *Authorizer {
	return &Authorizer{resolver: resolver}
}

// CanPerformAction reports whether the user may perform the action in the
// project. It never returns an authorization failure as an error: no
// membership, an unknown role, or a matrix miss all yield false. The only
// error path is a storage failure from the resolver.
func (a *Authorizer) CanPerformAction(ctx context.Context, userID, projectID string, action Action) (bool, error) {
	role, err := a.resolver.GetRole(ctx, userID, projectID)
	if err != nil {
		return false, fmt.Errorf("failed to resolve role: %w", err)
	}
	if role == nil {
		return false, nil
	}
	return RoleAllows(*role, action), nil
}

// EnforcePermission fails with an access-denied error unless the user may
// perform the action in the project. The denial message does not reveal
// whether the user is a member at all.
func (a *Authorizer) EnforcePermission(ctx context.Context, userID, projectID string, action Action) error {
	allowed, err := a.CanPerformAction(ctx, userID, projectID, action)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.AccessDenied(fmt.Sprintf("You don't have permission to perform action '%s'", action))
	}
	return nil
}
