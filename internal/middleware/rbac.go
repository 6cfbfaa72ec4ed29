// rbac.go implements role-based authorization middleware.
//
// Permissions are resolved at request time from the membership table rather
// than being embedded in the session or JWT. When a member's role changes,
// the change takes effect on their next request without needing to
// invalidate or reissue any credential.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/apperrors"
	"github.com/prism-hq/prism-server/internal/rbac"
	"github.com/prism-hq/prism-server/internal/telemetry"
)

// ProjectIDKey is the gin.Context key under which RequireAction stores the
// project ID the request was authorized against.
const ProjectIDKey = "project_id"

// RequireAction authorizes the current request for a single action. The
// project is taken from the :projectID route parameter when the route has
// one, otherwise from the session's active project.
//
// Must run after AuthMiddleware. Denials return 403 and increment the
// permission-denial counter; they are never treated as errors.
func RequireAction(authz *rbac.Authorizer, action rbac.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "No active session",
			})
			return
		}

		sess := GetSession(c)

		projectID := c.Param("projectID")
		if projectID == "" {
			if sess != nil && sess.ActiveProjectID != nil {
				projectID = *sess.ActiveProjectID
			}
		}
		if projectID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "No active project selected",
			})
			return
		}

		// An access-simulation session carries owner-equivalent capability in
		// the simulated project without any membership row. Entry into this
		// state is allow-list gated and audited by the simulation service.
		if sess.Impersonating() && sess.SimulatedProjectID != nil && *sess.SimulatedProjectID == projectID {
			c.Set(ProjectIDKey, projectID)
			c.Next()
			return
		}

		if err := authz.EnforcePermission(c.Request.Context(), userID, projectID, action); err != nil {
			if apperrors.IsKind(err, apperrors.KindAccessDenied) {
				telemetry.PermissionDenialsTotal.WithLabelValues(string(action)).Inc()
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": err.Error(),
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check permissions",
			})
			return
		}

		c.Set(ProjectIDKey, projectID)
		c.Next()
	}
}
