// auth.go implements the login, callback, logout, and token endpoints. The
// browser flow is OIDC authorization code: /auth/login redirects to the
// identity provider, /auth/callback verifies the ID token and establishes the
// session cookie. /auth/token exchanges an authenticated session for a short
// lived JWT so CLI and service clients can call the API without a cookie jar.
package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/auth"
	"github.com/prism-hq/prism-server/internal/auth/oidc"
	"github.com/prism-hq/prism-server/internal/config"
	"github.com/prism-hq/prism-server/internal/db/models"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/middleware"
	"github.com/prism-hq/prism-server/internal/session"
	"github.com/prism-hq/prism-server/internal/telemetry"
)

// stateCookieName holds the OAuth state parameter between the login redirect
// and the provider callback.
const stateCookieName = "prism_oauth_state"

// AuthHandlers handles authentication endpoints.
type AuthHandlers struct {
	cfg         *config.Config
	store       *session.Store
	provider    *oidc.Provider
	issuer      *auth.TokenIssuer
	userRepo    *repositories.UserRepository
	projectRepo *repositories.ProjectRepository
}

// NewAuthHandlers creates an AuthHandlers instance. provider and issuer may
// be nil when the corresponding mechanism is not configured; the affected
// endpoints then return 503.
func NewAuthHandlers(
	cfg *config.Config,
	store *session.Store,
	provider *oidc.Provider,
	issuer *auth.TokenIssuer,
	userRepo *repositories.UserRepository,
	projectRepo *repositories.ProjectRepository,
) *AuthHandlers {
	return &AuthHandlers{
		cfg:         cfg,
		store:       store,
		provider:    provider,
		issuer:      issuer,
		userRepo:    userRepo,
		projectRepo: projectRepo,
	}
}

// LoginHandler starts the OIDC authorization code flow.
// GET /auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.provider == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "OIDC is not configured",
			})
			return
		}

		state, err := randomState()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate state",
			})
			return
		}

		// The state round-trips through a short-lived cookie so the callback
		// can reject forged redirects.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(stateCookieName, state, 600, "/", "", h.cfg.IsProduction(), true)

		c.Redirect(http.StatusFound, h.provider.AuthURL(state))
	}
}

// CallbackHandler completes the OIDC flow: verifies state, exchanges the
// code, verifies the ID token, finds or creates the user, and establishes
// the session cookie.
// GET /auth/callback?code=...&state=...
func (h *AuthHandlers) CallbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.provider == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "OIDC is not configured",
			})
			return
		}

		expectedState, err := c.Cookie(stateCookieName)
		if err != nil || expectedState == "" || c.Query("state") != expectedState {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid state parameter",
			})
			return
		}
		// One-shot: clear the state cookie regardless of outcome.
		c.SetCookie(stateCookieName, "", -1, "/", "", h.cfg.IsProduction(), true)

		code := c.Query("code")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Missing authorization code",
			})
			return
		}

		token, err := h.provider.ExchangeCode(c.Request.Context(), code)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Failed to exchange authorization code",
			})
			return
		}

		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok || rawIDToken == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Identity provider response missing id_token",
			})
			return
		}

		idToken, err := h.provider.VerifyIDToken(c.Request.Context(), rawIDToken)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Failed to verify identity token",
			})
			return
		}

		identity, err := h.provider.ExtractIdentity(idToken)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Identity token missing required claims",
			})
			return
		}

		user, err := h.userRepo.GetOrCreateFromOIDC(c.Request.Context(), identity.Sub, identity.Email, identity.Name)
		if err != nil {
			respondError(c, err)
			return
		}

		if err := h.createSession(c, user); err != nil {
			respondError(c, err)
			return
		}

		c.Redirect(http.StatusFound, "/")
	}
}

// LogoutHandler destroys the session cookie. Idempotent: logging out without
// a session is still a 200.
// POST /auth/logout
func (h *AuthHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.store.Destroy(c)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// TokenHandler exchanges the authenticated session for a Bearer JWT.
// POST /auth/token (requires auth)
func (h *AuthHandlers) TokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.issuer == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Token issuance is not configured",
			})
			return
		}

		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
			return
		}

		token, err := h.issuer.Generate(user.ID, user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to issue token",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"token_type": "Bearer",
			"expires_in": int(h.cfg.Auth.JWT.ExpiresIn.Seconds()),
		})
	}
}

// MeHandler returns the authenticated user's identity and session state.
// GET /api/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		sess := middleware.GetSession(c)
		if user == nil || sess == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user":              user.Public(),
			"active_project_id": sess.ActiveProjectID,
			"super_admin_mode":  sess.SuperAdminMode,
		})
	}
}

// DevLoginHandler establishes a session for an email without OIDC. Registered
// only outside production; it exists so local development and integration
// tests do not need a live identity provider.
// POST /auth/dev-login {"email": "...", "name": "..."}
func (h *AuthHandlers) DevLoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required,email"`
			Name  string `json:"name"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
			return
		}

		user, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
		if err != nil {
			respondError(c, err)
			return
		}
		if user == nil {
			name := req.Name
			if name == "" {
				name = req.Email
			}
			user = &models.User{Email: req.Email, Name: name}
			if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
				respondError(c, err)
				return
			}
		}

		if err := h.createSession(c, user); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user.Public()})
	}
}

// createSession writes the session cookie for the user, defaulting the
// active project to the first project they belong to.
func (h *AuthHandlers) createSession(c *gin.Context, user *models.User) error {
	var activeProjectID *string
	projects, err := h.projectRepo.GetUserProjects(c.Request.Context(), user.ID)
	if err != nil {
		return err
	}
	if len(projects) > 0 {
		activeProjectID = &projects[0].ID
	}

	if _, err := h.store.Create(c, user.ID, activeProjectID); err != nil {
		return err
	}
	telemetry.SessionsCreatedTotal.Inc()
	return nil
}

// currentUser returns the user loaded by AuthMiddleware, or nil.
func currentUser(c *gin.Context) *models.User {
	val, ok := c.Get(middleware.UserKey)
	if !ok {
		return nil
	}
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
