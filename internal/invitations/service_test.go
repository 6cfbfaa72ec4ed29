package invitations

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/prism-hq/prism-server/internal/apperrors"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/rbac"
	"github.com/prism-hq/prism-server/internal/session"
)

var invitationCols = []string{
	"id", "project_id", "email", "role", "token_hash",
	"invited_by", "expires_at", "accepted_at", "created_at",
}

var userCols = []string{"id", "email", "name", "oidc_sub", "created_at", "updated_at"}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewService(
		repositories.NewInvitationRepository(sqlx.NewDb(db, "sqlmock")),
		repositories.NewProjectRepository(db),
		repositories.NewUserRepository(db),
	), mock
}

func hashToken(t *testing.T, raw string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func invitationRow(t *testing.T, rawToken string, expiresAt time.Time, acceptedAt *time.Time) *sqlmock.Rows {
	t.Helper()
	return sqlmock.NewRows(invitationCols).AddRow(
		"inv-1", "proj-1", "bob@example.com", "editor", hashToken(t, rawToken),
		"user-1", expiresAt, acceptedAt, time.Now(),
	)
}

func expectInvitation(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT.*FROM invitations.*WHERE id").
		WithArgs("inv-1").
		WillReturnRows(rows)
}

func expectAcceptingUser(mock sqlmock.Sqlmock, email string) {
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("user-2", email, "Bob", "sub-2", time.Now(), time.Now()))
}

func assertKindAndMessage(t *testing.T, err error, kind apperrors.Kind, message string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	if apperrors.KindOf(err) != kind {
		t.Errorf("kind = %v, want %v (err: %v)", apperrors.KindOf(err), kind, err)
	}
	if err.Error() != message {
		t.Errorf("message = %q, want %q", err.Error(), message)
	}
}

func TestInvite_RejectsInvalidRole(t *testing.T) {
	svc, _ := newService(t)

	for _, role := range []rbac.Role{rbac.RoleOwner, rbac.Role("superuser"), rbac.Role("")} {
		_, _, err := svc.Invite(context.Background(), "user-1", "proj-1", "bob@example.com", role)
		assertKindAndMessage(t, err, apperrors.KindBadRequest, "Invalid role for invitation")
	}
}

func TestInvite_RequiresEmail(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.Invite(context.Background(), "user-1", "proj-1", "", rbac.RoleEditor)
	assertKindAndMessage(t, err, apperrors.KindBadRequest, "Email is required")
}

func TestInvite_StoresHashReturnsRawToken(t *testing.T) {
	svc, mock := newService(t)

	mock.ExpectQuery("INSERT INTO invitations").
		WithArgs("proj-1", "bob@example.com", "viewer", sqlmock.AnyArg(), "user-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("inv-1", time.Now()))

	inv, rawToken, err := svc.Invite(context.Background(), "user-1", "proj-1", "bob@example.com", rbac.RoleViewer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rawToken == "" {
		t.Fatal("raw token is empty")
	}
	if inv.TokenHash == rawToken {
		t.Error("token stored in the clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(inv.TokenHash), []byte(rawToken)); err != nil {
		t.Errorf("stored hash does not match raw token: %v", err)
	}
	if inv.ExpiresAt.Before(time.Now().Add(6 * 24 * time.Hour)) {
		t.Errorf("expires too soon: %v", inv.ExpiresAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAccept_RequiresSession(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Accept(context.Background(), &session.Session{}, "inv-1", "tok")
	assertKindAndMessage(t, err, apperrors.KindUnauthenticated, "No active session")
}

func TestAccept_InvitationNotFound(t *testing.T) {
	svc, mock := newService(t)
	mock.ExpectQuery("SELECT.*FROM invitations.*WHERE id").
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows(invitationCols))

	_, err := svc.Accept(context.Background(), &session.Session{UserID: "user-2"}, "inv-1", "tok")
	assertKindAndMessage(t, err, apperrors.KindNotFound, "Invitation not found")
}

func TestAccept_Expired(t *testing.T) {
	svc, mock := newService(t)
	expectInvitation(mock, invitationRow(t, "tok", time.Now().Add(-time.Hour), nil))

	_, err := svc.Accept(context.Background(), &session.Session{UserID: "user-2"}, "inv-1", "tok")
	assertKindAndMessage(t, err, apperrors.KindBadRequest, "Invitation is no longer valid")
}

func TestAccept_AlreadyAccepted(t *testing.T) {
	svc, mock := newService(t)
	accepted := time.Now().Add(-time.Hour)
	expectInvitation(mock, invitationRow(t, "tok", time.Now().Add(time.Hour), &accepted))

	_, err := svc.Accept(context.Background(), &session.Session{UserID: "user-2"}, "inv-1", "tok")
	assertKindAndMessage(t, err, apperrors.KindBadRequest, "Invitation is no longer valid")
}

func TestAccept_WrongToken(t *testing.T) {
	svc, mock := newService(t)
	expectInvitation(mock, invitationRow(t, "tok", time.Now().Add(time.Hour), nil))

	_, err := svc.Accept(context.Background(), &session.Session{UserID: "user-2"}, "inv-1", "guessed")
	assertKindAndMessage(t, err, apperrors.KindAccessDenied, "Invalid invitation token")
}

func TestAccept_EmailMismatch(t *testing.T) {
	svc, mock := newService(t)
	expectInvitation(mock, invitationRow(t, "tok", time.Now().Add(time.Hour), nil))
	expectAcceptingUser(mock, "mallory@example.com")

	_, err := svc.Accept(context.Background(), &session.Session{UserID: "user-2"}, "inv-1", "tok")
	assertKindAndMessage(t, err, apperrors.KindAccessDenied, "Invitation was issued for a different email address")
}

func TestAccept_AlreadyMember(t *testing.T) {
	svc, mock := newService(t)
	expectInvitation(mock, invitationRow(t, "tok", time.Now().Add(time.Hour), nil))
	expectAcceptingUser(mock, "bob@example.com")
	mock.ExpectQuery("SELECT.*FROM memberships.*WHERE user_id").
		WithArgs("user-2", "proj-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "role", "created_at"}).
			AddRow("mem-9", "proj-1", "user-2", "viewer", time.Now()))

	_, err := svc.Accept(context.Background(), &session.Session{UserID: "user-2"}, "inv-1", "tok")
	assertKindAndMessage(t, err, apperrors.KindBadRequest, "You are already a member of this project")
}

func TestAccept_CreatesMembership(t *testing.T) {
	svc, mock := newService(t)
	expectInvitation(mock, invitationRow(t, "tok", time.Now().Add(time.Hour), nil))
	expectAcceptingUser(mock, "bob@example.com")
	mock.ExpectQuery("SELECT.*FROM memberships.*WHERE user_id").
		WithArgs("user-2", "proj-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "user_id", "role", "created_at"}))
	mock.ExpectQuery("INSERT INTO memberships").
		WithArgs("proj-1", "user-2", "editor").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("mem-1", time.Now()))
	mock.ExpectExec("UPDATE invitations SET accepted_at").
		WithArgs("inv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	membership, err := svc.Accept(context.Background(), &session.Session{UserID: "user-2"}, "inv-1", "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if membership.ProjectID != "proj-1" || membership.UserID != "user-2" || membership.Role != rbac.RoleEditor {
		t.Errorf("membership = %+v", membership)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
