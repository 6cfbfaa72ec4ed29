package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/prism-hq/prism-server/internal/apperrors"
)

// stubResolver returns a fixed role (or error) for every lookup.
type stubResolver struct {
	role *Role
	err  error
}

func (s *stubResolver) GetRole(ctx context.Context, userID, projectID string) (*Role, error) {
	return s.role, s.err
}

func rolePtr(r Role) *Role { return &r }

func TestCanPerformActionAllowed(t *testing.T) {
	authz := NewAuthorizer(&stubResolver{role: rolePtr(RoleEditor)})

	ok, err := authz.CanPerformAction(context.Background(), "u1", "p1", ActionDashboardCreate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("editor should be allowed dashboard:create")
	}
}

func TestCanPerformActionDeniedIsNotAnError(t *testing.T) {
	cases := []struct {
		name     string
		resolver *stubResolver
		action   Action
	}{
		{"no membership", &stubResolver{role: nil}, ActionProjectRead},
		{"role lacks action", &stubResolver{role: rolePtr(RoleViewer)}, ActionDashboardCreate},
		{"unknown role", &stubResolver{role: rolePtr(Role("ghost"))}, ActionProjectRead},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			authz := NewAuthorizer(tc.resolver)
			ok, err := authz.CanPerformAction(context.Background(), "u1", "p1", tc.action)
			if err != nil {
				t.Fatalf("denial must not be an error, got: %v", err)
			}
			if ok {
				t.Error("expected denial")
			}
		})
	}
}

func TestCanPerformActionResolverError(t *testing.T) {
	boom := errors.New("db down")
	authz := NewAuthorizer(&stubResolver{err: boom})

	ok, err := authz.CanPerformAction(context.Background(), "u1", "p1", ActionProjectRead)
	if ok {
		t.Error("expected false on resolver error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped resolver error, got %v", err)
	}
}

func TestEnforcePermissionDenialMessage(t *testing.T) {
	authz := NewAuthorizer(&stubResolver{role: rolePtr(RoleViewer)})

	err := authz.EnforcePermission(context.Background(), "u1", "p1", ActionMembersInvite)
	if !apperrors.IsKind(err, apperrors.KindAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	want := "You don't have permission to perform action 'members:invite'"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestEnforcePermissionAllowed(t *testing.T) {
	authz := NewAuthorizer(&stubResolver{role: rolePtr(RoleOwner)})

	if err := authz.EnforcePermission(context.Background(), "u1", "p1", ActionProjectDelete); err != nil {
		t.Errorf("owner should pass project:delete, got %v", err)
	}
}

func TestEnforcePermissionMessageSameForNonMemberAndInsufficientRole(t *testing.T) {
	nonMember := NewAuthorizer(&stubResolver{role: nil})
	viewer := NewAuthorizer(&stubResolver{role: rolePtr(RoleViewer)})

	err1 := nonMember.EnforcePermission(context.Background(), "u1", "p1", ActionProjectUpdate)
	err2 := viewer.EnforcePermission(context.Background(), "u2", "p1", ActionProjectUpdate)
	if err1 == nil || err2 == nil {
		t.Fatal("expected denials")
	}
	if err1.Error() != err2.Error() {
		t.Errorf("denial messages differ: %q vs %q", err1.Error(), err2.Error())
	}
}
