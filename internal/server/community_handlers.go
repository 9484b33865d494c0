package server

import (
	"alumnihub/internal/models"
	"alumnihub/internal/service"

	"github.com/gofiber/fiber/v2"
)

type communityRequest struct {
	Name        *string                   `json:"name"`
	Slug        string                    `json:"slug"`
	Description *string                   `json:"description"`
	Type        *models.CommunityType     `json:"type"`
	CategoryID  *uint                     `json:"category_id"`
	Settings    *models.CommunitySettings `json:"settings"`
}

// CreateCommunity handles POST /api/communities
// @Summary Create a community
// @Description The creator becomes its first admin
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body communityRequest true "Community"
// @Success 201 {object} models.Envelope{data=models.Community}
// @Failure 400 {object} models.ErrorResponse
// @Router /communities [post]
func (s *Server) CreateCommunity(c *fiber.Ctx) error {
	var req communityRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	in := service.CreateCommunityInput{
		Slug:       req.Slug,
		CategoryID: req.CategoryID,
		Settings:   req.Settings,
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Type != nil {
		in.Type = *req.Type
	}

	community, err := s.communityService.CreateCommunity(c.UserContext(), actor(c), in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, community)
}

// ListCommunities handles GET /api/communities
// @Summary List communities
// @Description Hidden communities appear only to their members and tenant admins
// @Tags communities
// @Produce json
// @Security BearerAuth
// @Param type query string false "open, closed or hidden"
// @Param category_id query int false "Category filter"
// @Param q query string false "Name search"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} models.Envelope{data=[]models.Community}
// @Router /communities [get]
func (s *Server) ListCommunities(c *fiber.Ctx) error {
	in := service.ListCommunitiesInput{
		Type:   models.CommunityType(c.Query("type")),
		Search: c.Query("q"),
		Page:   parsePagination(c, 20),
	}
	if id := c.QueryInt("category_id"); id > 0 {
		cid := uint(id)
		in.CategoryID = &cid
	}

	list, err := s.communityService.ListCommunities(c.UserContext(), actor(c), in)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, list)
}

// GetCommunity handles GET /api/communities/:id
// @Summary Get a community with the caller's membership and permissions
// @Tags communities
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} models.Envelope{data=service.CommunityView}
// @Failure 404 {object} models.ErrorResponse
// @Router /communities/{id} [get]
func (s *Server) GetCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.communityService.GetCommunity(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, view)
}

// GetCommunityBySlug handles GET /api/communities/slug/:slug
func (s *Server) GetCommunityBySlug(c *fiber.Ctx) error {
	view, err := s.communityService.GetCommunityBySlug(c.UserContext(), actor(c), c.Params("slug"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, view)
}

// UpdateCommunity handles PUT /api/communities/:id
// @Summary Update community details, type or settings
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body communityRequest true "Fields to change"
// @Success 200 {object} models.Envelope{data=models.Community}
// @Failure 403 {object} models.ErrorResponse
// @Router /communities/{id} [put]
func (s *Server) UpdateCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req communityRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	community, err := s.communityService.UpdateCommunity(c.UserContext(), actor(c), id, service.UpdateCommunityInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		CategoryID:  req.CategoryID,
		Settings:    req.Settings,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, community)
}

// DeleteCommunity handles DELETE /api/communities/:id
func (s *Server) DeleteCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.communityService.DeleteCommunity(c.UserContext(), actor(c), id); err != nil {
		return fail(c, err)
	}
	return models.RespondWithMessage(c, fiber.StatusOK, "Community deleted")
}

// ListModerators handles GET /api/communities/:id/moderators
func (s *Server) ListModerators(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	staff, err := s.communityService.ListModerators(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, staff)
}

// ListModerationActions handles GET /api/communities/:id/moderation-log
// @Summary Community moderation log
// @Description Newest first. Visible to community staff and tenant admins.
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 200 {object} models.Envelope{data=[]models.ModerationAction}
// @Failure 403 {object} models.ErrorResponse
// @Router /communities/{id}/moderation-log [get]
func (s *Server) ListModerationActions(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	log, err := s.communityService.ListModerationActions(c.UserContext(), actor(c), id, parsePagination(c, 50))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, log)
}
