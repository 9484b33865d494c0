package service

import (
	"context"
	"strings"
	"time"

	"alumnihub/internal/events"
	"alumnihub/internal/models"
	"alumnihub/internal/notifications"
	"alumnihub/internal/observability"
	"alumnihub/internal/permissions"
	"alumnihub/internal/repository"
)

const maxCommentLen = 10000

type CommentService struct {
	access   communityAccess
	posts    repository.PostRepository
	comments repository.CommentRepository
	effects  sideEffects
	now      func() time.Time
}

type CreateCommentInput struct {
	PostID          uint
	Content         string
	ParentCommentID *uint
}

func NewCommentService(
	communities repository.CommunityRepository,
	memberships repository.MembershipRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	notifier UserNotifier,
	publisher events.Publisher,
) *CommentService {
	s := &CommentService{
		posts:    posts,
		comments: comments,
		effects:  newSideEffects(notifier, publisher),
		now:      utcNow,
	}
	s.access = communityAccess{communities: communities, memberships: memberships, now: func() time.Time { return s.now() }}
	return s
}

func validateCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.NewValidationError("Comment content is required")
	}
	if len(content) > maxCommentLen {
		return "", models.NewValidationError("Comment too long (max 10000 characters)")
	}
	return content, nil
}

// post loads a visible post and the actor's standing in its community.
func (s *CommentService) post(ctx context.Context, actor models.Actor, postID uint) (*models.Post, permissions.Subject, error) {
	post, err := s.posts.GetByID(ctx, postID, actor.UserID)
	if err != nil {
		return nil, permissions.Subject{}, err
	}
	sub, err := s.access.viewable(ctx, actor, post.CommunityID)
	if err != nil {
		return nil, permissions.Subject{}, err
	}
	if !postVisible(post, actor, sub) {
		return nil, permissions.Subject{}, models.NewNotFoundError("Post", postID)
	}
	return post, sub, nil
}

// comment loads a comment the actor may see, with its post and subject.
func (s *CommentService) comment(ctx context.Context, actor models.Actor, commentID uint) (*models.Comment, *models.Post, permissions.Subject, error) {
	c, err := s.comments.GetByID(ctx, commentID, actor.UserID)
	if err != nil {
		return nil, nil, permissions.Subject{}, err
	}
	post, sub, err := s.post(ctx, actor, c.PostID)
	if err != nil {
		return nil, nil, permissions.Subject{}, err
	}
	if !commentVisible(c, actor, sub) {
		return nil, nil, permissions.Subject{}, models.NewNotFoundError("Comment", commentID)
	}
	return c, post, sub, nil
}

func commentVisible(c *models.Comment, actor models.Actor, sub permissions.Subject) bool {
	switch c.Status {
	case models.ContentStatusApproved:
		return true
	case models.ContentStatusDeleted:
		return false
	}
	return c.AuthorID == actor.UserID || sub.CanModerate()
}

// CreateComment adds a comment or a reply. Replies attach only to top-level
// comments.
func (s *CommentService) CreateComment(ctx context.Context, actor models.Actor, in CreateCommentInput) (*models.Comment, error) {
	content, err := validateCommentContent(in.Content)
	if err != nil {
		return nil, err
	}
	post, sub, err := s.post(ctx, actor, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.ContentStatusApproved {
		return nil, models.NewValidationError("comments are closed until the post is approved")
	}
	if !sub.CanComment() {
		return nil, models.NewForbiddenError("you do not have permission to comment in this community")
	}

	if in.ParentCommentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentCommentID, actor.UserID)
		if err != nil {
			if isNotFound(err) {
				return nil, models.NewValidationError("parent comment not found")
			}
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, models.NewValidationError("parent comment belongs to another post")
		}
		if parent.IsReply() {
			return nil, models.NewValidationError("replies can only be one level deep")
		}
		if parent.Status != models.ContentStatusApproved {
			return nil, models.NewValidationError("cannot reply to a comment that is not approved")
		}
	}

	c := &models.Comment{
		PostID:          post.ID,
		AuthorID:        actor.UserID,
		ParentCommentID: in.ParentCommentID,
		Content:         content,
		Status:          sub.InitialContentStatus(),
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}
	observability.ContentCreated.WithLabelValues("comment", string(c.Status)).Inc()
	return c, nil
}

// ListComments returns top-level comments oldest first with their replies
// nested. Replies whose parent is not visible are dropped.
func (s *CommentService) ListComments(ctx context.Context, actor models.Actor, postID uint) ([]*models.Comment, error) {
	_, sub, err := s.post(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	flat, err := s.comments.ListByPost(ctx, repository.CommentFilter{
		PostID:    postID,
		ViewerID:  actor.UserID,
		Moderator: sub.CanModerate(),
	})
	if err != nil {
		return nil, err
	}
	return buildCommentTree(flat), nil
}

func buildCommentTree(flat []*models.Comment) []*models.Comment {
	roots := make([]*models.Comment, 0, len(flat))
	byID := make(map[uint]*models.Comment, len(flat))
	for _, c := range flat {
		if !c.IsReply() {
			c.Replies = []*models.Comment{}
			byID[c.ID] = c
			roots = append(roots, c)
		}
	}
	for _, c := range flat {
		if !c.IsReply() {
			continue
		}
		if parent, ok := byID[*c.ParentCommentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}
	return roots
}

func (s *CommentService) UpdateComment(ctx context.Context, actor models.Actor, commentID uint, content string) (*models.Comment, error) {
	content, err := validateCommentContent(content)
	if err != nil {
		return nil, err
	}
	c, _, _, err := s.comment(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != actor.UserID {
		return nil, models.NewForbiddenError("only the author can edit this comment")
	}
	c.Content = content
	if err := s.comments.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, actor models.Actor, commentID uint, reason string) error {
	c, _, sub, err := s.comment(ctx, actor, commentID)
	if err != nil {
		return err
	}
	var action *models.ModerationAction
	if c.AuthorID != actor.UserID {
		if !sub.CanModerate() {
			return models.NewForbiddenError("you can only delete your own comments")
		}
		action = newAction(sub, models.ModerationEntityComment, c.ID, models.ActionCommentDelete, c.AuthorID, strings.TrimSpace(reason))
	}
	if err := s.comments.SetStatus(ctx, c, models.ContentStatusDeleted, action); err != nil {
		return err
	}
	s.effects.publish(ctx, action)
	return nil
}

func (s *CommentService) review(ctx context.Context, actor models.Actor, commentID uint, to models.ContentStatus, verb models.ModerationActionType, reason string) (*models.Comment, error) {
	c, _, sub, err := s.comment(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}
	if !sub.CanModerate() {
		return nil, models.NewForbiddenError("only moderators can review comments")
	}
	if c.Status == to {
		return c, nil
	}
	if c.Status != models.ContentStatusPending {
		return nil, models.NewValidationError("only pending comments can be reviewed")
	}
	action := newAction(sub, models.ModerationEntityComment, c.ID, verb, c.AuthorID, strings.TrimSpace(reason))
	if err := s.comments.SetStatus(ctx, c, to, action); err != nil {
		return nil, err
	}
	s.effects.publish(ctx, action)
	ev := notifications.EventCommentApproved
	if to == models.ContentStatusRejected {
		ev = notifications.EventCommentRejected
	}
	s.effects.notify(ctx, c.AuthorID, ev, map[string]any{"comment_id": c.ID, "post_id": c.PostID, "reason": action.Reason})
	return c, nil
}

func (s *CommentService) ApproveComment(ctx context.Context, actor models.Actor, commentID uint) (*models.Comment, error) {
	return s.review(ctx, actor, commentID, models.ContentStatusApproved, models.ActionCommentApprove, "")
}

func (s *CommentService) RejectComment(ctx context.Context, actor models.Actor, commentID uint, reason string) (*models.Comment, error) {
	return s.review(ctx, actor, commentID, models.ContentStatusRejected, models.ActionCommentReject, reason)
}

func (s *CommentService) setLike(ctx context.Context, actor models.Actor, commentID uint, like bool) (*LikeResult, error) {
	c, _, _, err := s.comment(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ContentStatusApproved {
		return nil, models.NewValidationError("only approved comments can be liked")
	}
	if like {
		err = s.comments.Like(ctx, actor.UserID, c.ID)
	} else {
		err = s.comments.Unlike(ctx, actor.UserID, c.ID)
	}
	if err != nil {
		return nil, err
	}
	fresh, err := s.comments.GetByID(ctx, c.ID, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: fresh.Liked, LikesCount: int64(fresh.LikesCount)}, nil
}

func (s *CommentService) LikeComment(ctx context.Context, actor models.Actor, commentID uint) (*LikeResult, error) {
	return s.setLike(ctx, actor, commentID, true)
}

func (s *CommentService) UnlikeComment(ctx context.Context, actor models.Actor, commentID uint) (*LikeResult, error) {
	return s.setLike(ctx, actor, commentID, false)
}
