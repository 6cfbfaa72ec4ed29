package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var userCols = []string{"id", "email", "name", "oidc_sub", "created_at", "updated_at"}
var userCreateCols = []string{"id", "created_at", "updated_at"}

func sampleUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow("user-1", "alice@example.com", "Alice", "sub-1", time.Now(), time.Now())
}

func newUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

func TestUserGetByID_Found(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs("user-1").
		WillReturnRows(sampleUserRow())

	user, err := repo.GetByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.Email != "alice@example.com" {
		t.Errorf("user = %+v", user)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").
		WillReturnRows(sqlmock.NewRows(userCols))

	user, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Error("expected nil user")
	}
}

func TestGetOrCreateFromOIDC_SubjectHit(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE oidc_sub").
		WithArgs("sub-1").
		WillReturnRows(sampleUserRow())

	user, err := repo.GetOrCreateFromOIDC(context.Background(), "sub-1", "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user = %+v", user)
	}
}

func TestGetOrCreateFromOIDC_LinksExistingEmail(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE oidc_sub").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("user-1", "alice@example.com", "Alice", nil, time.Now(), time.Now()))
	mock.ExpectExec("UPDATE users SET oidc_sub").
		WithArgs("sub-1", "Alice", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.GetOrCreateFromOIDC(context.Background(), "sub-1", "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.OIDCSub == nil || *user.OIDCSub != "sub-1" {
		t.Errorf("OIDCSub = %v, want sub-1", user.OIDCSub)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetOrCreateFromOIDC_CreatesNewUser(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users.*WHERE oidc_sub").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectQuery("SELECT.*FROM users.*WHERE email").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("carol@example.com", "Carol", "sub-9").
		WillReturnRows(sqlmock.NewRows(userCreateCols).
			AddRow("user-9", time.Now(), time.Now()))

	user, err := repo.GetOrCreateFromOIDC(context.Background(), "sub-9", "carol@example.com", "Carol")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-9" || user.Email != "carol@example.com" {
		t.Errorf("user = %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
