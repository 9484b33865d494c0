package server

import (
	"alumnihub/internal/models"
	"alumnihub/internal/service"

	"github.com/gofiber/fiber/v2"
)

type categoryRequest struct {
	TenantID    uint                      `json:"tenant_id"`
	EntityType  models.CategoryEntityType `json:"entity_type"`
	Name        *string                   `json:"name"`
	Description *string                   `json:"description"`
	Order       *int                      `json:"order"`
	IsActive    *bool                     `json:"is_active"`
}

// ListCategories handles GET /api/categories
// @Summary List categories
// @Description Active categories of the caller's tenant. Admins may pass include_inactive.
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param entity_type query string false "Entity type"
// @Param include_inactive query bool false "Include inactive (admins)"
// @Success 200 {object} models.Envelope{data=[]models.Category}
// @Router /categories [get]
func (s *Server) ListCategories(c *fiber.Ctx) error {
	list, err := s.categoryService.ListCategories(c.UserContext(), actor(c), service.ListCategoriesInput{
		EntityType:      models.CategoryEntityType(c.Query("entity_type")),
		IncludeInactive: c.QueryBool("include_inactive"),
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, list)
}

// GetCategory handles GET /api/categories/:id
func (s *Server) GetCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	category, err := s.categoryService.GetCategory(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, category)
}

// CreateCategory handles POST /api/categories
// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body categoryRequest true "Category"
// @Success 201 {object} models.Envelope{data=models.Category}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	in := service.CreateCategoryInput{
		TenantID:   req.TenantID,
		EntityType: req.EntityType,
		IsActive:   req.IsActive,
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Order != nil {
		in.Order = *req.Order
	}

	category, err := s.categoryService.CreateCategory(c.UserContext(), actor(c), in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, category)
}

// UpdateCategory handles PUT /api/categories/:id
func (s *Server) UpdateCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req categoryRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	category, err := s.categoryService.UpdateCategory(c.UserContext(), actor(c), id, service.UpdateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Order:       req.Order,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, category)
}

// DeleteCategory handles DELETE /api/categories/:id
// @Summary Delete an unused category
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} models.Envelope
// @Failure 400 {object} models.ErrorResponse "Category in use"
// @Router /categories/{id} [delete]
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.categoryService.DeleteCategory(c.UserContext(), actor(c), id); err != nil {
		return fail(c, err)
	}
	return models.RespondWithMessage(c, fiber.StatusOK, "Category deleted")
}
