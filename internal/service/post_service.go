package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"alumnihub/internal/events"
	"alumnihub/internal/models"
	"alumnihub/internal/notifications"
	"alumnihub/internal/observability"
	"alumnihub/internal/permissions"
	"alumnihub/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen      = 200
	maxContentLen    = 50000
	minPollOptions   = 2
	maxPollOptions   = 10
	maxPollOptionLen = 200
)

type PostService struct {
	access  communityAccess
	posts   repository.PostRepository
	effects sideEffects
	now     func() time.Time
}

type CreatePostInput struct {
	CommunityID uint
	Title       string
	Content     string
	Type        models.PostType
	LinkURL     string
	PollOptions []string
}

type UpdatePostInput struct {
	Title   *string
	Content *string
	LinkURL *string
}

type ListPostsInput struct {
	CommunityID uint
	Status      models.ContentStatus
	Page        repository.Page
}

// LikeResult is returned by like and unlike so clients can refresh counters.
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

func NewPostService(
	communities repository.CommunityRepository,
	memberships repository.MembershipRepository,
	posts repository.PostRepository,
	notifier UserNotifier,
	publisher events.Publisher,
) *PostService {
	s := &PostService{
		posts:   posts,
		effects: newSideEffects(notifier, publisher),
		now:     utcNow,
	}
	s.access = communityAccess{communities: communities, memberships: memberships, now: func() time.Time { return s.now() }}
	return s
}

func validatePostBody(title, content string) error {
	if len(title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 200 characters)")
	}
	if strings.TrimSpace(content) == "" {
		return models.NewValidationError("Content is required")
	}
	if len(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)")
	}
	return nil
}

func validateLinkURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return models.NewValidationError("link_url must be an absolute http or https URL")
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, actor models.Actor, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "post.create", attribute.Int64("community.id", int64(in.CommunityID)))
	defer func() { span.Finish(err) }()

	postType := in.Type
	if postType == "" {
		postType = models.PostTypeText
	}
	switch postType {
	case models.PostTypeText, models.PostTypeLink, models.PostTypePoll:
	default:
		return nil, models.NewValidationError("Invalid post type")
	}

	title := strings.TrimSpace(in.Title)
	if err := validatePostBody(title, in.Content); err != nil {
		return nil, err
	}

	post = &models.Post{
		CommunityID: in.CommunityID,
		AuthorID:    actor.UserID,
		Title:       title,
		Content:     in.Content,
		Type:        postType,
	}
	switch postType {
	case models.PostTypeLink:
		if err := validateLinkURL(in.LinkURL); err != nil {
			return nil, err
		}
		post.LinkURL = strings.TrimSpace(in.LinkURL)
	case models.PostTypePoll:
		options, err := normalizePollOptions(in.PollOptions)
		if err != nil {
			return nil, err
		}
		for i, text := range options {
			post.PollOptions = append(post.PollOptions, models.PollOption{Text: text, Position: i})
		}
	}

	sub, err := s.access.subject(ctx, actor, in.CommunityID)
	if err != nil {
		return nil, err
	}
	if !sub.CanPost() {
		return nil, models.NewForbiddenError("you do not have permission to post in this community")
	}
	post.Status = sub.InitialContentStatus()

	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.ContentCreated.WithLabelValues("post", string(post.Status)).Inc()
	return post, nil
}

func normalizePollOptions(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, opt := range raw {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return nil, models.NewValidationError("Poll options cannot be empty")
		}
		if len(opt) > maxPollOptionLen {
			return nil, models.NewValidationError("Poll option too long (max 200 characters)")
		}
		key := strings.ToLower(opt)
		if _, dup := seen[key]; dup {
			return nil, models.NewValidationError("Poll options must be unique")
		}
		seen[key] = struct{}{}
		out = append(out, opt)
	}
	if len(out) < minPollOptions || len(out) > maxPollOptions {
		return nil, models.NewValidationError("A poll needs between 2 and 10 options")
	}
	return out, nil
}

// load fetches a post and the actor's standing in its community. Posts the
// actor may not see are reported as not found.
func (s *PostService) load(ctx context.Context, actor models.Actor, postID uint) (*models.Post, permissions.Subject, error) {
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

func postVisible(post *models.Post, actor models.Actor, sub permissions.Subject) bool {
	switch post.Status {
	case models.ContentStatusApproved:
		return true
	case models.ContentStatusDeleted:
		return false
	}
	return post.AuthorID == actor.UserID || sub.CanModerate()
}

// GetPost returns a post and counts the view.
func (s *PostService) GetPost(ctx context.Context, actor models.Actor, postID uint) (*models.Post, error) {
	post, _, err := s.load(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if err := s.posts.IncrementViews(ctx, post.ID); err != nil {
		return nil, err
	}
	post.ViewCount++
	return post, nil
}

// ListPosts is the community feed, pinned posts first.
func (s *PostService) ListPosts(ctx context.Context, actor models.Actor, in ListPostsInput) ([]*models.Post, error) {
	sub, err := s.access.viewable(ctx, actor, in.CommunityID)
	if err != nil {
		return nil, err
	}
	return s.posts.ListByCommunity(ctx, repository.PostFilter{
		CommunityID: in.CommunityID,
		ViewerID:    actor.UserID,
		Moderator:   sub.CanModerate(),
		Status:      in.Status,
	}, in.Page)
}

// UpdatePost edits the author's own post. Type and poll options are fixed
// once created.
func (s *PostService) UpdatePost(ctx context.Context, actor models.Actor, postID uint, in UpdatePostInput) (*models.Post, error) {
	post, _, err := s.load(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actor.UserID {
		return nil, models.NewForbiddenError("only the author can edit this post")
	}
	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if err := validatePostBody(post.Title, post.Content); err != nil {
		return nil, err
	}
	if in.LinkURL != nil {
		if post.Type != models.PostTypeLink {
			return nil, models.NewValidationError("only link posts have a link_url")
		}
		if err := validateLinkURL(*in.LinkURL); err != nil {
			return nil, err
		}
		post.LinkURL = strings.TrimSpace(*in.LinkURL)
	}
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes a post. Authors delete their own; moderators delete
// anything and the removal is logged.
func (s *PostService) DeletePost(ctx context.Context, actor models.Actor, postID uint, reason string) error {
	post, sub, err := s.load(ctx, actor, postID)
	if err != nil {
		return err
	}
	var action *models.ModerationAction
	if post.AuthorID != actor.UserID {
		if !sub.CanModerate() {
			return models.NewForbiddenError("you can only delete your own posts")
		}
		action = newAction(sub, models.ModerationEntityPost, post.ID, models.ActionPostDelete, post.AuthorID, strings.TrimSpace(reason))
	}
	if err := s.posts.SetStatus(ctx, post, models.ContentStatusDeleted, action); err != nil {
		return err
	}
	s.effects.publish(ctx, action)
	return nil
}

func (s *PostService) moderate(ctx context.Context, actor models.Actor, postID uint, to models.ContentStatus, verb models.ModerationActionType, reason string) (*models.Post, error) {
	post, sub, err := s.load(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if !sub.CanModerate() {
		return nil, models.NewForbiddenError("only moderators can review posts")
	}
	if post.Status == to {
		return post, nil
	}
	if post.Status != models.ContentStatusPending {
		return nil, models.NewValidationError("only pending posts can be reviewed")
	}
	action := newAction(sub, models.ModerationEntityPost, post.ID, verb, post.AuthorID, strings.TrimSpace(reason))
	if err := s.posts.SetStatus(ctx, post, to, action); err != nil {
		return nil, err
	}
	s.effects.publish(ctx, action)
	ev := notifications.EventPostApproved
	if to == models.ContentStatusRejected {
		ev = notifications.EventPostRejected
	}
	s.effects.notify(ctx, post.AuthorID, ev, map[string]any{
		"post_id": post.ID, "community_id": post.CommunityID, "reason": action.Reason,
	})
	return post, nil
}

func (s *PostService) ApprovePost(ctx context.Context, actor models.Actor, postID uint) (*models.Post, error) {
	return s.moderate(ctx, actor, postID, models.ContentStatusApproved, models.ActionPostApprove, "")
}

func (s *PostService) RejectPost(ctx context.Context, actor models.Actor, postID uint, reason string) (*models.Post, error) {
	return s.moderate(ctx, actor, postID, models.ContentStatusRejected, models.ActionPostReject, reason)
}

// SetPinned pins or unpins an approved post.
func (s *PostService) SetPinned(ctx context.Context, actor models.Actor, postID uint, pinned bool) (*models.Post, error) {
	post, sub, err := s.load(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if !sub.CanModerate() {
		return nil, models.NewForbiddenError("only moderators can pin posts")
	}
	if post.Status != models.ContentStatusApproved {
		return nil, models.NewValidationError("only approved posts can be pinned")
	}
	if post.Pinned == pinned {
		return post, nil
	}
	verb := models.ActionPostPin
	if !pinned {
		verb = models.ActionPostUnpin
	}
	action := newAction(sub, models.ModerationEntityPost, post.ID, verb, post.AuthorID, "")
	if err := s.posts.SetPinned(ctx, post, pinned, action); err != nil {
		return nil, err
	}
	s.effects.publish(ctx, action)
	return post, nil
}

func (s *PostService) likeTarget(ctx context.Context, actor models.Actor, postID uint) (*models.Post, error) {
	post, _, err := s.load(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.ContentStatusApproved {
		return nil, models.NewValidationError("only approved posts can be liked")
	}
	return post, nil
}

// LikePost is idempotent.
func (s *PostService) LikePost(ctx context.Context, actor models.Actor, postID uint) (*LikeResult, error) {
	post, err := s.likeTarget(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Like(ctx, actor.UserID, post.ID); err != nil {
		return nil, err
	}
	n, err := s.posts.CountLikes(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: true, LikesCount: n}, nil
}

// UnlikePost is idempotent.
func (s *PostService) UnlikePost(ctx context.Context, actor models.Actor, postID uint) (*LikeResult, error) {
	post, err := s.likeTarget(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Unlike(ctx, actor.UserID, post.ID); err != nil {
		return nil, err
	}
	n, err := s.posts.CountLikes(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: false, LikesCount: n}, nil
}

func (s *PostService) ListLikers(ctx context.Context, actor models.Actor, postID uint, page repository.Page) ([]models.User, error) {
	post, _, err := s.load(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	return s.posts.ListLikers(ctx, post.ID, page)
}

// ListMyLikes is the actor's like history, newest first.
func (s *PostService) ListMyLikes(ctx context.Context, actor models.Actor, page repository.Page) ([]*models.Post, error) {
	return s.posts.ListLikedByUser(ctx, actor.UserID, page)
}

// Vote records the actor's choice on a poll, replacing any earlier choice.
func (s *PostService) Vote(ctx context.Context, actor models.Actor, postID, optionID uint) (*models.Post, error) {
	post, sub, err := s.load(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if post.Type != models.PostTypePoll {
		return nil, models.NewValidationError("post is not a poll")
	}
	if post.Status != models.ContentStatusApproved {
		return nil, models.NewValidationError("voting is closed for this poll")
	}
	if !sub.IsMember() && !sub.Bypass() {
		return nil, models.NewForbiddenError("join this community to vote")
	}
	if sub.Status() == models.MembershipStatusSuspended {
		return nil, models.NewForbiddenError("suspended members cannot vote")
	}
	found := false
	for _, opt := range post.PollOptions {
		if opt.ID == optionID {
			found = true
			break
		}
	}
	if !found {
		return nil, models.NewValidationError("option does not belong to this poll")
	}
	if err := s.posts.Vote(ctx, post.ID, optionID, actor.UserID); err != nil {
		return nil, err
	}
	return s.posts.GetByID(ctx, post.ID, actor.UserID)
}
