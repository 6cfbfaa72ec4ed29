package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/crypto"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/middleware"
	"github.com/prism-hq/prism-server/internal/projects"
	"github.com/prism-hq/prism-server/internal/rbac"
	"github.com/prism-hq/prism-server/internal/session"
	"github.com/prism-hq/prism-server/internal/simulation"
)

const (
	adminEmail   = "admin@prism.example"
	simProjectID = "7d444840-9dc0-11d1-b245-5ffdce74fad2"
)

var (
	userCols       = []string{"id", "email", "name", "oidc_sub", "created_at", "updated_at"}
	projectCols    = []string{"id", "name", "created_at", "updated_at"}
	membershipCols = []string{"id", "project_id", "user_id", "role", "created_at"}
)

// apiFixture stands up the handler layer over a single sqlmock database with
// the same middleware chain the production router uses, so the tests cover
// the full path from cookie to status code.
type apiFixture struct {
	mock   sqlmock.Sqlmock
	store  *session.Store
	router *gin.Engine
}

func newAPIFixture(t *testing.T, allowedEmails ...string) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	cipher, err := crypto.NewSessionCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	store := session.NewStore(cipher, "", 3600, false)

	userRepo := repositories.NewUserRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	projectSvc := projects.NewService(projectRepo)
	simSvc := simulation.NewService(userRepo, projectRepo, auditRepo, allowedEmails)
	authz := rbac.NewAuthorizer(projectSvc)

	memberHandlers := NewMemberHandlers(projectSvc, auditRepo)
	simHandlers := NewSimulationHandlers(simSvc, store)

	r := gin.New()
	r.Use(middleware.SessionMiddleware(store))
	api := r.Group("/api", middleware.AuthMiddleware(nil, userRepo))
	{
		api.POST("/super-admin/simulation", simHandlers.StartHandler())
		api.DELETE("/super-admin/simulation", simHandlers.ExitHandler())

		proj := api.Group("/projects/:projectID")
		proj.GET("/members", middleware.RequireAction(authz, rbac.ActionMembersRead), memberHandlers.ListHandler())
		proj.PATCH("/members/:membershipID", memberHandlers.UpdateRoleHandler())
		proj.DELETE("/members/:membershipID", memberHandlers.RemoveHandler())
	}

	return &apiFixture{mock: mock, store: store, router: r}
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// sessionCookie seals sess into a cookie the way the store would on a live
// response.
func (f *apiFixture) sessionCookie(t *testing.T, sess *session.Session) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if err := f.store.Save(c, sess); err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	for _, ck := range w.Result().Cookies() {
		if ck.Name == session.DefaultCookieName {
			return ck
		}
	}
	t.Fatal("session cookie not written")
	return nil
}

// responseCookie digs the session cookie out of a recorded response.
func responseCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name == session.DefaultCookieName {
			return ck
		}
	}
	t.Fatal("session cookie not set on response")
	return nil
}

// responseSession decodes the session cookie set on a recorded response, or
// returns nil when the response carries no valid session.
func (f *apiFixture) responseSession(t *testing.T, w *httptest.ResponseRecorder) *session.Session {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name != session.DefaultCookieName {
			continue
		}
		rc, _ := gin.CreateTestContext(httptest.NewRecorder())
		rc.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		rc.Request.AddCookie(ck)
		return f.store.Validate(rc)
	}
	return nil
}

// expectAuthUser wires the user lookup AuthMiddleware performs on every
// authenticated request.
func (f *apiFixture) expectAuthUser(id, email string) {
	f.mock.ExpectQuery("SELECT.*FROM users.*WHERE id").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(id, email, "Someone", nil, time.Now(), time.Now()))
}

func (f *apiFixture) expectMembershipByID(rows *sqlmock.Rows) {
	f.mock.ExpectQuery("SELECT.*FROM memberships.*WHERE id").WillReturnRows(rows)
}

func (f *apiFixture) expectRequesterRole(rows *sqlmock.Rows) {
	f.mock.ExpectQuery("SELECT.*FROM memberships.*WHERE user_id").WillReturnRows(rows)
}

func membershipRow(id, projectID, userID, role string) *sqlmock.Rows {
	return sqlmock.NewRows(membershipCols).
		AddRow(id, projectID, userID, role, time.Now())
}

func emptyMembership() *sqlmock.Rows {
	return sqlmock.NewRows(membershipCols)
}

func jsonRequest(method, path string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body %q is not JSON: %v", w.Body.String(), err)
	}
	return body.Error
}
