package server

import (
	"strings"
	"time"

	"alumnihub/internal/models"
	"alumnihub/internal/service"

	"github.com/gofiber/fiber/v2"
)

type reasonRequest struct {
	Reason string `json:"reason"`
}

// JoinCommunity handles POST /api/communities/:id/join
// @Summary Join a community
// @Description Open communities approve immediately; closed ones create a pending request
// @Tags memberships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 201 {object} models.Envelope{data=models.Membership}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /communities/{id}/join [post]
func (s *Server) JoinCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	m, err := s.membershipService.Join(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return created(c, m)
}

// LeaveCommunity handles POST /api/communities/:id/leave
func (s *Server) LeaveCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.membershipService.Leave(c.UserContext(), actor(c), id); err != nil {
		return fail(c, err)
	}
	return models.RespondWithMessage(c, fiber.StatusOK, "Left community")
}

// InviteMember handles POST /api/communities/:id/invite
// @Summary Invite a user
// @Description Invitees become approved members immediately
// @Tags memberships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body object{user_id=int} true "Invitee"
// @Success 201 {object} models.Envelope{data=models.Membership}
// @Failure 403 {object} models.ErrorResponse
// @Router /communities/{id}/invite [post]
func (s *Server) InviteMember(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.UserID == 0 {
		return fail(c, models.NewValidationError("user_id is required"))
	}
	m, err := s.membershipService.Invite(c.UserContext(), actor(c), id, req.UserID)
	if err != nil {
		return fail(c, err)
	}
	return created(c, m)
}

// ListMembers handles GET /api/communities/:id/members
// @Summary List members
// @Tags memberships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param status query string false "Membership status"
// @Param role query string false "Membership role"
// @Success 200 {object} models.Envelope{data=[]models.Membership}
// @Router /communities/{id}/members [get]
func (s *Server) ListMembers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	members, err := s.membershipService.ListMembers(c.UserContext(), actor(c), id, service.ListMembersInput{
		Status: models.MembershipStatus(c.Query("status")),
		Role:   models.MembershipRole(c.Query("role")),
		Page:   parsePagination(c, 50),
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, members)
}

// ListPendingMembers handles GET /api/communities/:id/members/pending
func (s *Server) ListPendingMembers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	pending, err := s.membershipService.ListPending(c.UserContext(), actor(c), id, parsePagination(c, 50))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, pending)
}

// ListMyMemberships handles GET /api/memberships/me?status=approved,pending
func (s *Server) ListMyMemberships(c *fiber.Ctx) error {
	var statuses []models.MembershipStatus
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			statuses = append(statuses, models.MembershipStatus(raw))
		}
	}
	list, err := s.membershipService.ListMyMemberships(c.UserContext(), actor(c), statuses)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, list)
}

// membershipTransition adapts a membership state change to a handler.
func (s *Server) membershipTransition(c *fiber.Ctx, apply func(a models.Actor, id uint) (*models.Membership, error)) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	m, err := apply(actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, m)
}

// ApproveMembership handles POST /api/memberships/:id/approve
// @Summary Approve a pending membership
// @Tags memberships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Membership ID"
// @Success 200 {object} models.Envelope{data=models.Membership}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /memberships/{id}/approve [post]
func (s *Server) ApproveMembership(c *fiber.Ctx) error {
	return s.membershipTransition(c, func(a models.Actor, id uint) (*models.Membership, error) {
		return s.membershipService.Approve(c.UserContext(), a, id)
	})
}

// RejectMembership handles POST /api/memberships/:id/reject
func (s *Server) RejectMembership(c *fiber.Ctx) error {
	var req reasonRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.membershipTransition(c, func(a models.Actor, id uint) (*models.Membership, error) {
		return s.membershipService.Reject(c.UserContext(), a, id, req.Reason)
	})
}

// SuspendMembership handles POST /api/memberships/:id/suspend
// @Summary Suspend a member
// @Description Omit end_date for an indefinite suspension
// @Tags memberships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Membership ID"
// @Param request body object{reason=string,end_date=string} true "Suspension"
// @Success 200 {object} models.Envelope{data=models.Membership}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /memberships/{id}/suspend [post]
func (s *Server) SuspendMembership(c *fiber.Ctx) error {
	var req struct {
		Reason  string     `json:"reason"`
		EndDate *time.Time `json:"end_date"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.membershipTransition(c, func(a models.Actor, id uint) (*models.Membership, error) {
		return s.membershipService.Suspend(c.UserContext(), a, id, service.SuspendInput{Reason: req.Reason, EndDate: req.EndDate})
	})
}

// UnsuspendMembership handles POST /api/memberships/:id/unsuspend
func (s *Server) UnsuspendMembership(c *fiber.Ctx) error {
	return s.membershipTransition(c, func(a models.Actor, id uint) (*models.Membership, error) {
		return s.membershipService.Unsuspend(c.UserContext(), a, id)
	})
}

// PromoteMembership handles POST /api/memberships/:id/promote
func (s *Server) PromoteMembership(c *fiber.Ctx) error {
	return s.membershipTransition(c, func(a models.Actor, id uint) (*models.Membership, error) {
		return s.membershipService.Promote(c.UserContext(), a, id)
	})
}

// DemoteMembership handles POST /api/memberships/:id/demote
func (s *Server) DemoteMembership(c *fiber.Ctx) error {
	return s.membershipTransition(c, func(a models.Actor, id uint) (*models.Membership, error) {
		return s.membershipService.Demote(c.UserContext(), a, id)
	})
}

// RemoveMembership handles POST /api/memberships/:id/remove
func (s *Server) RemoveMembership(c *fiber.Ctx) error {
	var req reasonRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.membershipTransition(c, func(a models.Actor, id uint) (*models.Membership, error) {
		return s.membershipService.Remove(c.UserContext(), a, id, req.Reason)
	})
}

// UpdateMemberPermissions handles PUT /api/memberships/:id/permissions
// @Summary Override a member's permissions
// @Description Null fields stay unchanged; reset clears every override first
// @Tags memberships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Membership ID"
// @Param request body object{can_post=bool,can_comment=bool,can_invite=bool,reset=bool} true "Overrides"
// @Success 200 {object} models.Envelope{data=models.Membership}
// @Router /memberships/{id}/permissions [put]
func (s *Server) UpdateMemberPermissions(c *fiber.Ctx) error {
	var req struct {
		CanPost    *bool `json:"can_post"`
		CanComment *bool `json:"can_comment"`
		CanInvite  *bool `json:"can_invite"`
		Reset      bool  `json:"reset"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.membershipTransition(c, func(a models.Actor, id uint) (*models.Membership, error) {
		return s.membershipService.UpdateModeratorPermissions(c.UserContext(), a, id, service.PermissionsInput{
			CanPost:    req.CanPost,
			CanComment: req.CanComment,
			CanInvite:  req.CanInvite,
			Reset:      req.Reset,
		})
	})
}
