// simulation.go implements the super-admin access simulation endpoints.
// Entry is heavily guarded (allow-list, argument shape, project existence)
// and audited; exit is idempotent and neither guarded nor audited.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/apperrors"
	"github.com/prism-hq/prism-server/internal/middleware"
	"github.com/prism-hq/prism-server/internal/session"
	"github.com/prism-hq/prism-server/internal/simulation"
	"github.com/prism-hq/prism-server/internal/telemetry"
)

// SimulationHandlers handles access simulation endpoints.
type SimulationHandlers struct {
	svc   *simulation.Service
	store *session.Store
}

// NewSimulationHandlers creates a SimulationHandlers instance.
func NewSimulationHandlers(svc *simulation.Service, store *session.Store) *SimulationHandlers {
	return &SimulationHandlers{svc: svc, store: store}
}

// StartHandler enters access simulation for a project.
// POST /api/super-admin/simulation {"project_id": "..."}
func (h *SimulationHandlers) StartHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ProjectID string `json:"project_id"`
		}
		// Binding errors are ignored: the service validates the project id
		// itself so the guard ordering stays in one place.
		_ = c.ShouldBindJSON(&req)

		sess := middleware.GetSession(c)
		if err := h.svc.Start(c.Request.Context(), sess, req.ProjectID, c.ClientIP()); err != nil {
			if apperrors.IsKind(err, apperrors.KindAccessDenied) {
				telemetry.AccessSimulationsTotal.WithLabelValues("denied").Inc()
			}
			respondError(c, err)
			return
		}

		if err := h.store.Save(c, sess); err != nil {
			respondError(c, err)
			return
		}

		telemetry.AccessSimulationsTotal.WithLabelValues("started").Inc()
		c.JSON(http.StatusOK, gin.H{
			"super_admin_mode":  true,
			"active_project_id": sess.ActiveProjectID,
		})
	}
}

// ExitHandler leaves access simulation. Calling it without an active
// simulation is a no-op, not an error.
// DELETE /api/super-admin/simulation
func (h *SimulationHandlers) ExitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := middleware.GetSession(c)
		if sess == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
			return
		}

		exited := h.svc.Exit(sess)
		if exited {
			if err := h.store.Save(c, sess); err != nil {
				respondError(c, err)
				return
			}
			telemetry.AccessSimulationsTotal.WithLabelValues("exited").Inc()
		}

		c.JSON(http.StatusOK, gin.H{
			"super_admin_mode": false,
			"exited":           exited,
		})
	}
}
