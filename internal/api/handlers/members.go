// members.go implements membership listing, role changes, member removal,
// and the owner-only audit log read. Role-change and removal guards (who may
// change whom, last-owner protection) live in the projects service; these
// handlers only translate the typed errors onto HTTP.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/apperrors"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/middleware"
	"github.com/prism-hq/prism-server/internal/projects"
	"github.com/prism-hq/prism-server/internal/rbac"
)

// MemberHandlers handles project membership endpoints.
type MemberHandlers struct {
	svc       *projects.Service
	auditRepo *repositories.AuditRepository
}

// NewMemberHandlers creates a MemberHandlers instance.
func NewMemberHandlers(svc *projects.Service, auditRepo *repositories.AuditRepository) *MemberHandlers {
	return &MemberHandlers{svc: svc, auditRepo: auditRepo}
}

// ListHandler lists project members with their public identities.
// GET /api/projects/:projectID/members
func (h *MemberHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		members, err := h.svc.ListMembers(c.Request.Context(), c.Param("projectID"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}

// UpdateRoleHandler changes a member's role.
// PATCH /api/projects/:projectID/members/:membershipID {"role": "..."}
func (h *MemberHandlers) UpdateRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Role string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Role is required"})
			return
		}

		role, ok := rbac.ParseRole(req.Role)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
			return
		}

		err := h.svc.UpdateMemberRole(c.Request.Context(), middleware.GetUserID(c), c.Param("membershipID"), role)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
	}
}

// RemoveHandler removes a member from the project.
// DELETE /api/projects/:projectID/members/:membershipID
func (h *MemberHandlers) RemoveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.svc.RemoveMember(c.Request.Context(), middleware.GetUserID(c), c.Param("membershipID"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AuditListHandler lists the project's audit entries, newest first. Reading
// the audit log is restricted to owners.
// GET /api/projects/:projectID/audit?limit=50&offset=0
func (h *MemberHandlers) AuditListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectID")

		role, err := h.svc.GetRole(c.Request.Context(), middleware.GetUserID(c), projectID)
		if err != nil {
			respondError(c, err)
			return
		}
		if role == nil || *role != rbac.RoleOwner {
			respondError(c, apperrors.AccessDenied("Only owners can view the audit log"))
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if offset < 0 {
			offset = 0
		}

		entries, err := h.auditRepo.ListByProject(c.Request.Context(), projectID, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}
