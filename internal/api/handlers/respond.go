// Package handlers implements the HTTP handlers for the Prism API. Handlers
// translate between HTTP and the service layer; authorization for
// project-scoped routes happens in middleware, while ordered business guards
// (ownership rules, last-owner protection) live in the services and surface
// here as typed errors.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/apperrors"
)

// respondError maps a typed application error onto an HTTP status and JSON
// body. Unknown errors are logged and returned as an opaque 500 so internal
// details never leak to clients.
func respondError(c *gin.Context, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindUnauthenticated:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case apperrors.KindAccessDenied:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperrors.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.KindInvariantViolation:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.KindBadRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
