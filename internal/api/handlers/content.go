// content.go implements CRUD for the three project-scoped content types:
// dashboards, reports, and segments. The three follow the same shape (an
// opaque JSON definition owned by a project) so the handlers are deliberately
// parallel; authorization per action tag happens in route middleware.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prism-hq/prism-server/internal/db/models"
	"github.com/prism-hq/prism-server/internal/db/repositories"
	"github.com/prism-hq/prism-server/internal/middleware"
)

// ContentHandlers handles dashboard, report, and segment endpoints.
type ContentHandlers struct {
	dashboards *repositories.DashboardRepository
	reports    *repositories.ReportRepository
	segments   *repositories.SegmentRepository
}

// NewContentHandlers creates a ContentHandlers instance.
func NewContentHandlers(
	dashboards *repositories.DashboardRepository,
	reports *repositories.ReportRepository,
	segments *repositories.SegmentRepository,
) *ContentHandlers {
	return &ContentHandlers{dashboards: dashboards, reports: reports, segments: segments}
}

type contentRequest struct {
	Name       string          `json:"name" binding:"required"`
	Definition json.RawMessage `json:"definition"`
}

type contentUpdateRequest struct {
	Name       *string         `json:"name"`
	Definition json.RawMessage `json:"definition"`
}

// dashboards

// CreateDashboardHandler creates a dashboard.
// POST /api/projects/:projectID/dashboards
func (h *ContentHandlers) CreateDashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
			return
		}

		d := &models.Dashboard{
			ProjectID:  c.Param("projectID"),
			Name:       req.Name,
			Definition: req.Definition,
			CreatedBy:  middleware.GetUserID(c),
		}
		if err := h.dashboards.Create(c.Request.Context(), d); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"dashboard": d})
	}
}

// ListDashboardsHandler lists the project's dashboards.
// GET /api/projects/:projectID/dashboards
func (h *ContentHandlers) ListDashboardsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.dashboards.ListByProject(c.Request.Context(), c.Param("projectID"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"dashboards": list})
	}
}

// GetDashboardHandler returns a single dashboard.
// GET /api/projects/:projectID/dashboards/:id
func (h *ContentHandlers) GetDashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := h.dashboards.GetByID(c.Request.Context(), c.Param("projectID"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if d == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dashboard not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"dashboard": d})
	}
}

// UpdateDashboardHandler updates a dashboard's name and/or definition.
// PATCH /api/projects/:projectID/dashboards/:id
func (h *ContentHandlers) UpdateDashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		d, err := h.dashboards.GetByID(c.Request.Context(), c.Param("projectID"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if d == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dashboard not found"})
			return
		}

		if req.Name != nil {
			d.Name = *req.Name
		}
		if req.Definition != nil {
			d.Definition = req.Definition
		}
		if err := h.dashboards.Update(c.Request.Context(), d); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"dashboard": d})
	}
}

// DeleteDashboardHandler deletes a dashboard.
// DELETE /api/projects/:projectID/dashboards/:id
func (h *ContentHandlers) DeleteDashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := h.dashboards.Delete(c.Request.Context(), c.Param("projectID"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dashboard not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// reports

// CreateReportHandler creates a report.
// POST /api/projects/:projectID/reports
func (h *ContentHandlers) CreateReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
			return
		}

		r := &models.Report{
			ProjectID:  c.Param("projectID"),
			Name:       req.Name,
			Definition: req.Definition,
			CreatedBy:  middleware.GetUserID(c),
		}
		if err := h.reports.Create(c.Request.Context(), r); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"report": r})
	}
}

// ListReportsHandler lists the project's reports.
// GET /api/projects/:projectID/reports
func (h *ContentHandlers) ListReportsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.reports.ListByProject(c.Request.Context(), c.Param("projectID"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reports": list})
	}
}

// GetReportHandler returns a single report.
// GET /api/projects/:projectID/reports/:id
func (h *ContentHandlers) GetReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		r, err := h.reports.GetByID(c.Request.Context(), c.Param("projectID"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if r == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": r})
	}
}

// UpdateReportHandler updates a report's name and/or definition.
// PATCH /api/projects/:projectID/reports/:id
func (h *ContentHandlers) UpdateReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		r, err := h.reports.GetByID(c.Request.Context(), c.Param("projectID"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if r == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}

		if req.Name != nil {
			r.Name = *req.Name
		}
		if req.Definition != nil {
			r.Definition = req.Definition
		}
		if err := h.reports.Update(c.Request.Context(), r); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": r})
	}
}

// DeleteReportHandler deletes a report.
// DELETE /api/projects/:projectID/reports/:id
func (h *ContentHandlers) DeleteReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := h.reports.Delete(c.Request.Context(), c.Param("projectID"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// segments

// CreateSegmentHandler creates an audience segment.
// POST /api/projects/:projectID/segments
func (h *ContentHandlers) CreateSegmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
			return
		}

		s := &models.Segment{
			ProjectID:  c.Param("projectID"),
			Name:       req.Name,
			Definition: req.Definition,
			CreatedBy:  middleware.GetUserID(c),
		}
		if err := h.segments.Create(c.Request.Context(), s); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"segment": s})
	}
}

// ListSegmentsHandler lists the project's segments.
// GET /api/projects/:projectID/segments
func (h *ContentHandlers) ListSegmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.segments.ListByProject(c.Request.Context(), c.Param("projectID"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"segments": list})
	}
}

// GetSegmentHandler returns a single segment.
// GET /api/projects/:projectID/segments/:id
func (h *ContentHandlers) GetSegmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := h.segments.GetByID(c.Request.Context(), c.Param("projectID"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if s == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Segment not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"segment": s})
	}
}

// UpdateSegmentHandler updates a segment's name and/or definition.
// PATCH /api/projects/:projectID/segments/:id
func (h *ContentHandlers) UpdateSegmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req contentUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		s, err := h.segments.GetByID(c.Request.Context(), c.Param("projectID"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if s == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Segment not found"})
			return
		}

		if req.Name != nil {
			s.Name = *req.Name
		}
		if req.Definition != nil {
			s.Definition = req.Definition
		}
		if err := h.segments.Update(c.Request.Context(), s); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"segment": s})
	}
}

// DeleteSegmentHandler deletes a segment.
// DELETE /api/projects/:projectID/segments/:id
func (h *ContentHandlers) DeleteSegmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		deleted, err := h.segments.Delete(c.Request.Context(), c.Param("projectID"), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if !deleted {
			c.JSON(http.StatusNotFound, gin.H{"error": "Segment not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
