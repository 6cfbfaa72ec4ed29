// customers.go implements the read-only customer data endpoints. Ingestion
// happens through a separate pipeline; this API only serves what that
// pipeline has landed.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/db/repositories"
)

// CustomerHandlers handles profile and event read endpoints.
type CustomerHandlers struct {
	repo *repositories.CustomerRepository
}

// NewCustomerHandlers creates a CustomerHandlers instance.
func NewCustomerHandlers(repo *repositories.CustomerRepository) *CustomerHandlers {
	return &CustomerHandlers{repo: repo}
}

// ListProfilesHandler lists customer profiles, most recently seen first.
// GET /api/projects/:projectID/profiles?limit=50&offset=0
func (h *CustomerHandlers) ListProfilesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c)
		profiles, err := h.repo.ListProfiles(c.Request.Context(), c.Param("projectID"), limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"profiles": profiles})
	}
}

// GetProfileHandler returns a single customer profile.
// GET /api/projects/:projectID/profiles/:id
func (h *CustomerHandlers) GetProfileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := h.repo.GetProfile(c.Request.Context(), c.Param("projectID"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if profile == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

// ListEventsHandler lists events, newest first, optionally filtered by
// profile.
// GET /api/projects/:projectID/events?profile_id=...&limit=50&offset=0
func (h *CustomerHandlers) ListEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := pagination(c)

		var profileID *string
		if v := c.Query("profile_id"); v != "" {
			profileID = &v
		}

		events, err := h.repo.ListEvents(c.Request.Context(), c.Param("projectID"), profileID, limit, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
