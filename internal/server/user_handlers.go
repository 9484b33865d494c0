package server

import (
	"alumnihub/internal/models"
	"alumnihub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /api/users
func (s *Server) ListUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext(), actor(c), parsePagination(c, 50))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, users)
}

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	u, err := s.userService.GetUser(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, u)
}

// CreateUser handles POST /api/users
// @Summary Provision an account
// @Description Tenant admins create accounts in their tenant; super admins in any
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{tenant_id=int,username=string,email=string,password=string,full_name=string,role=string} true "Account"
// @Success 201 {object} models.Envelope{data=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req struct {
		TenantID uint              `json:"tenant_id"`
		Username string            `json:"username"`
		Email    string            `json:"email"`
		Password string            `json:"password"`
		FullName string            `json:"full_name"`
		Role     models.GlobalRole `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	u, err := s.userService.CreateUser(c.UserContext(), actor(c), service.CreateUserInput{
		TenantID: req.TenantID,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, u)
}

// ActivateUser handles POST /api/users/:id/activate
func (s *Server) ActivateUser(c *fiber.Ctx) error {
	return s.setUserActive(c, true)
}

// DeactivateUser handles POST /api/users/:id/deactivate
func (s *Server) DeactivateUser(c *fiber.Ctx) error {
	return s.setUserActive(c, false)
}

func (s *Server) setUserActive(c *fiber.Ctx, active bool) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	u, err := s.userService.SetActive(c.UserContext(), actor(c), id, active)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, u)
}
