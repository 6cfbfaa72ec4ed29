// projects.go implements project CRUD and active-project switching.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/middleware"
	"github.com/prism-hq/prism-server/internal/projects"
	"github.com/prism-hq/prism-server/internal/session"
)

// ProjectHandlers handles project management endpoints.
type ProjectHandlers struct {
	svc         *projects.Service
	projectRepo *repositories.ProjectRepository
	store       *session.Store
}

// NewProjectHandlers creates a ProjectHandlers instance.
func NewProjectHandlers(svc *projects.Service, projectRepo *repositories.ProjectRepository, store *session.Store) *ProjectHandlers {
	return &ProjectHandlers{svc: svc, projectRepo: projectRepo, store: store}
}

// CreateHandler creates a project with the caller as its sole owner. The new
// project becomes the caller's active project.
// POST /api/projects {"name": "..."}
func (h *ProjectHandlers) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required"})
			return
		}

		project, err := h.svc.CreateProject(c.Request.Context(), middleware.GetUserID(c), req.Name)
		if err != nil {
			respondError(c, err)
			return
		}

		if _, err := h.store.UpdateActiveProject(c, project.ID); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"project": project})
	}
}

// ListHandler lists the caller's projects.
// GET /api/projects
func (h *ProjectHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.svc.GetUserProjects(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"projects": list})
	}
}

// GetHandler returns a single project.
// GET /api/projects/:projectID
func (h *ProjectHandlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		project, err := h.svc.GetProject(c.Request.Context(), c.Param("projectID"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"project": project})
	}
}

// UpdateHandler renames a project.
// PATCH /api/projects/:projectID {"name": "..."}
func (h *ProjectHandlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required"})
			return
		}

		projectID := c.Param("projectID")
		if err := h.projectRepo.UpdateName(c.Request.Context(), projectID, req.Name); err != nil {
			respondError(c, err)
			return
		}

		project, err := h.svc.GetProject(c.Request.Context(), projectID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"project": project})
	}
}

// DeleteHandler deletes a project and everything under it.
// DELETE /api/projects/:projectID
func (h *ProjectHandlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectID")
		if err := h.projectRepo.Delete(c.Request.Context(), projectID); err != nil {
			respondError(c, err)
			return
		}

		// If the deleted project was active, drop it from the session so the
		// client is not left pointing at a project that no longer exists.
		if sess := middleware.GetSession(c); sess != nil &&
			sess.ActiveProjectID != nil && *sess.ActiveProjectID == projectID {
			sess.ActiveProjectID = nil
			_ = h.store.Save(c, sess)
		}

		c.Status(http.StatusNoContent)
	}
}

// SwitchHandler sets the caller's active project after verifying membership.
// POST /api/projects/:projectID/switch
func (h *ProjectHandlers) SwitchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectID")
		if err := h.svc.SwitchActiveProject(c.Request.Context(), middleware.GetUserID(c), projectID); err != nil {
			respondError(c, err)
			return
		}

		if _, err := h.store.UpdateActiveProject(c, projectID); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"active_project_id": projectID})
	}
}
