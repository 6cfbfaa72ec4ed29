package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/auth"
	"github.com/prism-hq/prism-server/internal/crypto"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/session"
)

var userCols = []string{"id", "email", "name", "oidc_sub", "created_at", "updated_at"}

// authFixture bundles everything AuthMiddleware depends on: a session store
// with a known cipher for minting request cookies, a sqlmock-backed user
// repository, and an optional token issuer.
type authFixture struct {
	store  *session.Store
	cipher *crypto.SessionCipher
	repo   *repositories.UserRepository
	mock   sqlmock.Sqlmock
	issuer *auth.TokenIssuer
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	cipher, err := crypto.NewSessionCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	issuer, err := auth.NewTokenIssuer("a-test-signing-secret-of-32-bytes", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return &authFixture{
		store:  session.NewStore(cipher, "", 3600, false),
		cipher: cipher,
		repo:   repositories.NewUserRepository(db),
		mock:   mock,
		issuer: issuer,
	}
}

func (f *authFixture) router(t *testing.T, issuer *auth.TokenIssuer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SessionMiddleware(f.store))
	r.GET("/me", AuthMiddleware(issuer, f.repo), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":      GetUserID(c),
			"session_user": GetSession(c).UserID,
		})
	})
	return r
}

// sessionCookie mints a request cookie for the given session using the
// fixture's cipher, the same transformation the store applies on write.
func (f *authFixture) sessionCookie(t *testing.T, sess *session.Session) *http.Cookie {
	t.Helper()
	data, err := sess.Encode()
	if err != nil {
		t.Fatal(err)
	}
	value, err := f.cipher.Seal(data)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Cookie{Name: session.DefaultCookieName, Value: value}
}

func (f *authFixture) expectUser(id string) {
	f.mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(id, "alice@example.com", "Alice", "sub-1", time.Now(), time.Now()))
}

func (f *authFixture) expectNoUser(id string) {
	f.mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userCols))
}

func TestAuthMiddleware_NoCredentials(t *testing.T) {
	f := newAuthFixture(t)
	r := f.router(t, f.issuer)

	w := performRequest(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := errorBody(t, w); got != "No active session" {
		t.Errorf("error = %q, want %q", got, "No active session")
	}
}

func TestAuthMiddleware_ValidSessionCookie(t *testing.T) {
	f := newAuthFixture(t)
	f.expectUser("user-1")
	r := f.router(t, f.issuer)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(f.sessionCookie(t, &session.Session{UserID: "user-1"}))
	w := performRequest(r, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware_SessionForDeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	f.expectNoUser("user-gone")
	r := f.router(t, f.issuer)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(f.sessionCookie(t, &session.Session{UserID: "user-gone"}))
	w := performRequest(r, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := errorBody(t, w); got != "No active session" {
		t.Errorf("error = %q, want %q", got, "No active session")
	}
}

func TestAuthMiddleware_TamperedCookie(t *testing.T) {
	f := newAuthFixture(t)
	r := f.router(t, f.issuer)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "not-a-sealed-session"})
	w := performRequest(r, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_BearerFallback(t *testing.T) {
	f := newAuthFixture(t)
	f.expectUser("user-1")
	r := f.router(t, f.issuer)

	token, err := f.issuer.Generate("user-1", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := performRequest(r, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware_InvalidBearer(t *testing.T) {
	f := newAuthFixture(t)
	r := f.router(t, f.issuer)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := performRequest(r, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_BearerWithoutIssuer(t *testing.T) {
	f := newAuthFixture(t)
	r := f.router(t, nil)

	token, err := f.issuer.Generate("user-1", "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := performRequest(r, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 when no issuer is configured", w.Code)
	}
}

func TestSessionMiddleware_DoesNotAbort(t *testing.T) {
	f := newAuthFixture(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SessionMiddleware(f.store))
	r.GET("/public", func(c *gin.Context) {
		if GetSession(c) != nil {
			c.String(http.StatusOK, "authenticated")
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	w := performRequest(r, httptest.NewRequest(http.MethodGet, "/public", nil))
	if w.Code != http.StatusOK || w.Body.String() != "anonymous" {
		t.Errorf("anonymous request: status = %d body = %q", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.AddCookie(f.sessionCookie(t, &session.Session{UserID: "user-1"}))
	w = performRequest(r, req)
	if w.Code != http.StatusOK || w.Body.String() != "authenticated" {
		t.Errorf("cookie request: status = %d body = %q", w.Code, w.Body.String())
	}
}
