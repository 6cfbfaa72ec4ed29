// Package middleware provides Gin HTTP middleware for authentication,
// authorization, rate limiting, security headers, and request telemetry.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Session → Auth → RBAC → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB work.
// Session decoding populates the request identity; RBAC reads from that context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/auth"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/session"
)

// Context keys set by the middleware in this file and read by handlers.
const (
	SessionKey = "session"
	UserKey    = "user"
	UserIDKey  = "user_id"
)

// SessionMiddleware decodes the session cookie on every request and, when a
// valid authenticated session is present, stores it in the Gin context under
// SessionKey. It never aborts: routes that require authentication layer
// AuthMiddleware on top of it, and public routes (login, callback, health)
// still see the session when one exists.
func SessionMiddleware(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess := store.Validate(c); sess != nil {
			c.Set(SessionKey, sess)
		}
		c.Next()
	}
}

// AuthMiddleware requires an authenticated caller. The session cookie is the
// primary credential; a Bearer JWT is accepted as a fallback for non-browser
// clients. The cookie is checked first because it is the common path and
// decoding it is a pure cryptographic operation with no database round-trip.
//
// On success the resolved user is loaded and stored under UserKey and
// UserIDKey. A Bearer-authenticated request gets a synthetic session carrying
// only the user ID so downstream code can treat both paths uniformly.
func AuthMiddleware(issuer *auth.TokenIssuer, userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetSession(c)

		if sess == nil {
			claims := bearerClaims(c, issuer)
			if claims == nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "No active session",
				})
				return
			}
			sess = &session.Session{UserID: claims.UserID}
			c.Set(SessionKey, sess)
		}

		user, err := userRepo.GetByID(c.Request.Context(), sess.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}
		if user == nil {
			// The session references a user that no longer exists. Treat it
			// as unauthenticated rather than leaking the distinction.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "No active session",
			})
			return
		}

		c.Set(UserKey, user)
		c.Set(UserIDKey, user.ID)
		c.Next()
	}
}

// bearerClaims validates an Authorization: Bearer token, returning nil when
// the header is absent or the token does not verify.
func bearerClaims(c *gin.Context, issuer *auth.TokenIssuer) *auth.Claims {
	if issuer == nil {
		return nil
	}
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return nil
	}
	claims, err := issuer.Validate(token)
	if err != nil {
		return nil
	}
	return claims
}

// GetSession returns the decoded session for the current request, or nil when
// the caller is unauthenticated.
func GetSession(c *gin.Context) *session.Session {
	val, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	sess, ok := val.(*session.Session)
	if !ok {
		return nil
	}
	return sess
}

// GetUserID returns the authenticated user's ID, or "" when AuthMiddleware
// has not run or did not authenticate the request.
func GetUserID(c *gin.Context) string {
	val, ok := c.Get(UserIDKey)
	if !ok {
		return ""
	}
	id, _ := val.(string)
	return id
}
