package server

import (
	"alumnihub/internal/models"
	"alumnihub/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Title       string          `json:"title"`
	Content     string          `json:"content"`
	Type        models.PostType `json:"type"`
	LinkURL     string          `json:"link_url"`
	PollOptions []string        `json:"poll_options"`
}

// CreatePost handles POST /api/communities/:id/posts
// @Summary Create a post
// @Description Posts start pending when the community requires approval and the author is not staff
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param request body createPostRequest true "Post"
// @Success 201 {object} models.Envelope{data=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /communities/{id}/posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	communityID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), actor(c), service.CreatePostInput{
		CommunityID: communityID,
		Title:       req.Title,
		Content:     req.Content,
		Type:        req.Type,
		LinkURL:     req.LinkURL,
		PollOptions: req.PollOptions,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, post)
}

// ListPosts handles GET /api/communities/:id/posts
// @Summary List a community's posts
// @Description Pinned first, then newest. Staff may filter by status to work the approval queue.
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Param status query string false "Status filter (staff only)"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} models.Envelope{data=[]models.Post}
// @Failure 403 {object} models.ErrorResponse
// @Router /communities/{id}/posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	communityID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	posts, err := s.postService.ListPosts(c.UserContext(), actor(c), service.ListPostsInput{
		CommunityID: communityID,
		Status:      models.ContentStatus(c.Query("status")),
		Page:        parsePagination(c, 20),
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Title   *string `json:"title"`
		Content *string `json:"content"`
		LinkURL *string `json:"link_url"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	post, err := s.postService.UpdatePost(c.UserContext(), actor(c), id, service.UpdatePostInput{
		Title:   req.Title,
		Content: req.Content,
		LinkURL: req.LinkURL,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Description Authors delete their own posts; staff deletions are logged with the reason
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body reasonRequest false "Reason"
// @Success 200 {object} models.Envelope
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req reasonRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), actor(c), id, req.Reason); err != nil {
		return fail(c, err)
	}
	return models.RespondWithMessage(c, fiber.StatusOK, "Post deleted")
}

func (s *Server) postAction(c *fiber.Ctx, apply func(a models.Actor, id uint) (*models.Post, error)) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := apply(actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, post)
}

// ApprovePost handles POST /api/posts/:id/approve
// @Summary Approve a pending post
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope{data=models.Post}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id}/approve [post]
func (s *Server) ApprovePost(c *fiber.Ctx) error {
	return s.postAction(c, func(a models.Actor, id uint) (*models.Post, error) {
		return s.postService.ApprovePost(c.UserContext(), a, id)
	})
}

// RejectPost handles POST /api/posts/:id/reject
func (s *Server) RejectPost(c *fiber.Ctx) error {
	var req reasonRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.postAction(c, func(a models.Actor, id uint) (*models.Post, error) {
		return s.postService.RejectPost(c.UserContext(), a, id, req.Reason)
	})
}

// PinPost handles POST /api/posts/:id/pin
func (s *Server) PinPost(c *fiber.Ctx) error {
	return s.postAction(c, func(a models.Actor, id uint) (*models.Post, error) {
		return s.postService.SetPinned(c.UserContext(), a, id, true)
	})
}

// UnpinPost handles DELETE /api/posts/:id/pin
func (s *Server) UnpinPost(c *fiber.Ctx) error {
	return s.postAction(c, func(a models.Actor, id uint) (*models.Post, error) {
		return s.postService.SetPinned(c.UserContext(), a, id, false)
	})
}

// VotePoll handles POST /api/posts/:id/vote
// @Summary Vote in a poll
// @Description A second vote replaces the first
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{option_id=int} true "Choice"
// @Success 200 {object} models.Envelope{data=models.Post}
// @Router /posts/{id}/vote [post]
func (s *Server) VotePoll(c *fiber.Ctx) error {
	var req struct {
		OptionID uint `json:"option_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	return s.postAction(c, func(a models.Actor, id uint) (*models.Post, error) {
		return s.postService.Vote(c.UserContext(), a, id, req.OptionID)
	})
}

// LikePost handles POST /api/posts/:id/like
// @Summary Like a post
// @Description Idempotent
// @Tags likes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope{data=service.LikeResult}
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.postService.LikePost(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, res)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.postService.UnlikePost(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, res)
}

// ListPostLikers handles GET /api/posts/:id/likes
func (s *Server) ListPostLikers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	users, err := s.postService.ListLikers(c.UserContext(), actor(c), id, parsePagination(c, 50))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, users)
}

// ListMyLikes handles GET /api/likes/me
func (s *Server) ListMyLikes(c *fiber.Ctx) error {
	posts, err := s.postService.ListMyLikes(c.UserContext(), actor(c), parsePagination(c, 20))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, posts)
}
