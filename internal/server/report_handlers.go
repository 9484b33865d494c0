package server

import (
	"alumnihub/internal/models"
	"alumnihub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateReport handles POST /api/reports
// @Summary Report a post or comment
// @Description One report per user per item
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{entity_type=string,entity_id=int,reason=string,description=string} true "Report"
// @Success 201 {object} models.Envelope{data=models.Report}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reports [post]
func (s *Server) CreateReport(c *fiber.Ctx) error {
	var req struct {
		EntityType  models.ReportEntityType `json:"entity_type"`
		EntityID    uint                    `json:"entity_id"`
		Reason      models.ReportReason     `json:"reason"`
		Description string                  `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	report, err := s.reportService.CreateReport(c.UserContext(), actor(c), service.CreateReportInput{
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, report)
}

// ListReports handles GET /api/reports
// @Summary List reports visible to the caller
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, reviewed, resolved or dismissed"
// @Param entity_type query string false "post or comment"
// @Success 200 {object} models.Envelope{data=[]models.Report}
// @Router /reports [get]
func (s *Server) ListReports(c *fiber.Ctx) error {
	reports, err := s.reportService.ListReports(c.UserContext(), actor(c), service.ListReportsInput{
		Status:     models.ReportStatus(c.Query("status")),
		EntityType: models.ReportEntityType(c.Query("entity_type")),
		Page:       parsePagination(c, 50),
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, reports)
}

// GetReport handles GET /api/reports/:id
func (s *Server) GetReport(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.reportService.GetReport(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}

// UpdateReportStatus handles PATCH /api/reports/:id
// @Summary Move a report forward
// @Description Super admins only. pending may become reviewed, resolved or dismissed; reviewed may become resolved or dismissed.
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Report ID"
// @Param request body object{status=string,notes=string} true "Transition"
// @Success 200 {object} models.Envelope{data=models.Report}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /reports/{id} [patch]
func (s *Server) UpdateReportStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status models.ReportStatus `json:"status"`
		Notes  string              `json:"notes"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	report, err := s.reportService.UpdateReportStatus(c.UserContext(), actor(c), id, service.UpdateReportInput{
		Status: req.Status,
		Notes:  req.Notes,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, report)
}
