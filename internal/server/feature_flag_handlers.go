package server

import (
	"alumnihub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns configured feature flags and their state for the
// current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	a := actor(c)
	return ok(c, fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(a.UserID),
	})
}

// SetFeatureFlag changes a flag at runtime. Only super admins may do this;
// the change is process-local and resets on restart.
func (s *Server) SetFeatureFlag(c *fiber.Ctx) error {
	a := actor(c)
	if !a.IsSuperAdmin() {
		return fail(c, models.NewForbiddenError("only super admins can change feature flags"))
	}
	var req struct {
		Value string `json:"value"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.featureFlags.Set(c.Params("name"), req.Value); err != nil {
		return fail(c, models.NewValidationError(err.Error()))
	}
	return ok(c, fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(a.UserID),
	})
}
