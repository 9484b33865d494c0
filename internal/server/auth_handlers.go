package server

import (
	"context"

	"alumnihub/internal/middleware"
	"alumnihub/internal/models"

	"github.com/gofiber/fiber/v2"
)

const actorLocal = "actor"

// Login handles user authentication
// @Summary User login
// @Description Authenticate with email and password and receive a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} models.Envelope{data=service.LoginResult}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, res)
}

// GetMe returns the authenticated user.
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Envelope{data=models.User}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	a := actor(c)
	u, err := s.userService.GetUser(c.UserContext(), a, a.UserID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, u)
}

// AuthRequired verifies the bearer token and then resolves the actor from the
// stored user, so role and tenant changes apply before the token expires.
func (s *Server) AuthRequired() []fiber.Handler {
	return []fiber.Handler{middleware.JWTAuth(s.config.JWTSecret), s.resolveActor}
}

// resolveActor runs after JWTAuth accepted the token.
func (s *Server) resolveActor(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(uint)
	a, err := s.authService.ResolveActor(c.UserContext(), userID)
	if err != nil {
		return fail(c, err)
	}
	c.Locals(actorLocal, a)
	c.Locals("role", a.Role)
	c.Locals("tenantID", a.TenantID)

	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, a.UserID)
	ctx = context.WithValue(ctx, middleware.TenantIDKey, a.TenantID)
	c.SetUserContext(ctx)
	return c.Next()
}

// AdminRequired rejects actors that are neither super admins nor college
// admins. Must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		a := actor(c)
		if !a.IsSuperAdmin() && a.Role != models.RoleCollegeAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}
