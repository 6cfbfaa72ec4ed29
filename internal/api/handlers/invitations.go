// invitations.go implements invitation creation, listing, and acceptance.
// Email delivery is an external collaborator: the API returns the raw token
// exactly once, at creation, for the delivery system to pick up.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/invitations"
	"github.com/prism-hq/prism-server/internal/middleware"
	"github.com/prism-hq/prism-server/internal/rbac"
	"github.com/prism-hq/prism-server/internal/session"
)

// InvitationHandlers handles invitation endpoints.
type InvitationHandlers struct {
	svc   *invitations.Service
	store *session.Store
}

// NewInvitationHandlers creates an InvitationHandlers instance.
func NewInvitationHandlers(svc *invitations.Service, store *session.Store) *InvitationHandlers {
	return &InvitationHandlers{svc: svc, store: store}
}

// InviteHandler creates an invitation to join the project.
// POST /api/projects/:projectID/invitations {"email": "...", "role": "..."}
func (h *InvitationHandlers) InviteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required,email"`
			Role  string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email and role are required"})
			return
		}

		inv, rawToken, err := h.svc.Invite(
			c.Request.Context(),
			middleware.GetUserID(c),
			c.Param("projectID"),
			req.Email,
			rbac.Role(req.Role),
		)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"invitation": inv,
			"token":      rawToken,
		})
	}
}

// ListPendingHandler lists pending invitations for the project.
// GET /api/projects/:projectID/invitations
func (h *InvitationHandlers) ListPendingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.svc.ListPending(c.Request.Context(), c.Param("projectID"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"invitations": list})
	}
}

// AcceptHandler redeems an invitation token, creating the membership. If the
// caller had no active project, the joined project becomes active.
// POST /api/invitations/:id/accept {"token": "..."}
func (h *InvitationHandlers) AcceptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
			return
		}

		sess := middleware.GetSession(c)
		membership, err := h.svc.Accept(c.Request.Context(), sess, c.Param("id"), req.Token)
		if err != nil {
			respondError(c, err)
			return
		}

		if sess != nil && sess.ActiveProjectID == nil {
			sess.ActiveProjectID = &membership.ProjectID
			if err := h.store.Save(c, sess); err != nil {
				respondError(c, err)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"membership": membership})
	}
}
