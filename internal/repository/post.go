package repository

import (
	"context"
	"time"

	"alumnihub/internal/cache"
	"alumnihub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows a community feed. Moderators see every live post;
// everyone else sees approved posts plus their own pending or rejected ones.
type PostFilter struct {
	CommunityID uint
	ViewerID    uint
	Moderator   bool
	Status      models.ContentStatus
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	ListByCommunity(ctx context.Context, f PostFilter, page Page) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	SetStatus(ctx context.Context, post *models.Post, status models.ContentStatus, action *models.ModerationAction) error
	SetPinned(ctx context.Context, post *models.Post, pinned bool, action *models.ModerationAction) error
	IncrementViews(ctx context.Context, id uint) error
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
	CountLikes(ctx context.Context, postID uint) (int64, error)
	ListLikers(ctx context.Context, postID uint, page Page) ([]models.User, error)
	ListLikedByUser(ctx context.Context, userID uint, page Page) ([]*models.Post, error)
	Vote(ctx context.Context, postID, optionID, userID uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts the post with its poll options and recomputes post_count.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCommunity(tx, post.CommunityID); err != nil {
			return err
		}
		if err := tx.Omit("Community", "Author").Create(post).Error; err != nil {
			return err
		}
		return syncPostCount(tx, post.CommunityID)
	})
	if err != nil {
		return translate(err, "Post", post.ID, "post already exists")
	}
	cache.InvalidateCommunity(ctx, post.CommunityID)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), viewerID).
		Preload("Author").
		Preload("PollOptions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&post, id).Error
	if err != nil {
		return nil, translate(err, "Post", id, "")
	}
	if err := r.enrichPolls(ctx, []*models.Post{&post}, viewerID); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListByCommunity(ctx context.Context, f PostFilter, page Page) ([]*models.Post, error) {
	q := r.applyPostDetails(r.db.WithContext(ctx), f.ViewerID).
		Preload("Author").
		Preload("PollOptions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("posts.community_id = ?", f.CommunityID)

	switch {
	case f.Moderator && f.Status != "":
		q = q.Where("posts.status = ?", f.Status)
	case f.Moderator:
		q = q.Where("posts.status <> ?", models.ContentStatusDeleted)
	case f.Status != "" && f.Status != models.ContentStatusApproved:
		q = q.Where("posts.status = ? AND posts.author_id = ?", f.Status, f.ViewerID)
	default:
		q = q.Where("posts.status = ? OR (posts.author_id = ? AND posts.status IN ?)",
			models.ContentStatusApproved, f.ViewerID,
			[]models.ContentStatus{models.ContentStatusPending, models.ContentStatusRejected})
	}

	var posts []*models.Post
	if err := page.apply(q.Order("posts.pinned DESC, posts.created_at DESC, posts.id DESC")).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.enrichPolls(ctx, posts, f.ViewerID); err != nil {
		return nil, err
	}
	return posts, nil
}

// applyPostDetails adds subqueries to fetch counts and liked status in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL AND comments.status = 'approved') AS comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count"

	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked", viewerID)
	}
	return db.Select(selectQuery + ", 0 = 1 AS liked")
}

type optionTally struct {
	PollOptionID uint
	Votes        int
}

// enrichPolls fills vote counts and the viewer's choice on poll options.
func (r *postRepository) enrichPolls(ctx context.Context, posts []*models.Post, viewerID uint) error {
	var ids []uint
	for _, p := range posts {
		if p.Type == models.PostTypePoll && len(p.PollOptions) > 0 {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var tallies []optionTally
	if err := r.db.WithContext(ctx).Model(&models.PollVote{}).
		Select("poll_option_id, COUNT(*) AS votes").
		Where("post_id IN ?", ids).
		Group("poll_option_id").
		Scan(&tallies).Error; err != nil {
		return models.NewInternalError(err)
	}
	counts := make(map[uint]int, len(tallies))
	for _, t := range tallies {
		counts[t.PollOptionID] = t.Votes
	}

	mine := map[uint]bool{}
	if viewerID != 0 {
		var chosen []uint
		if err := r.db.WithContext(ctx).Model(&models.PollVote{}).
			Where("post_id IN ? AND user_id = ?", ids, viewerID).
			Pluck("poll_option_id", &chosen).Error; err != nil {
			return models.NewInternalError(err)
		}
		for _, id := range chosen {
			mine[id] = true
		}
	}

	for _, p := range posts {
		for i := range p.PollOptions {
			opt := &p.PollOptions[i]
			opt.VoteCount = counts[opt.ID]
			opt.Voted = mine[opt.ID]
		}
	}
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(post).Select("title", "content", "link_url").Updates(post).Error
	return translate(err, "Post", post.ID, "")
}

// SetStatus moves the post through its lifecycle. Deleted posts are also
// soft deleted so they drop out of every read path.
func (r *postRepository) SetStatus(ctx context.Context, post *models.Post, status models.ContentStatus, action *models.ModerationAction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCommunity(tx, post.CommunityID); err != nil {
			return err
		}
		updates := map[string]any{"status": status, "updated_at": time.Now().UTC()}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
			return err
		}
		if status == models.ContentStatusDeleted {
			if err := tx.Delete(&models.Post{}, post.ID).Error; err != nil {
				return err
			}
		}
		if err := syncPostCount(tx, post.CommunityID); err != nil {
			return err
		}
		return appendAction(tx, action)
	})
	if err != nil {
		return translate(err, "Post", post.ID, "")
	}
	post.Status = status
	cache.InvalidateCommunity(ctx, post.CommunityID)
	return nil
}

func (r *postRepository) SetPinned(ctx context.Context, post *models.Post, pinned bool, action *models.ModerationAction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("pinned", pinned).Error; err != nil {
			return err
		}
		return appendAction(tx, action)
	})
	if err != nil {
		return translate(err, "Post", post.ID, "")
	}
	post.Pinned = pinned
	return nil
}

func (r *postRepository) IncrementViews(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
	return translate(err, "Post", id, "")
}

// Like is idempotent: a duplicate (user, post) pair is ignored.
func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "post_id"}}, DoNothing: true}).
		Create(&models.Like{UserID: userID, PostID: postID}).Error
	return translate(err, "Post", postID, "")
}

// Unlike removes the like row if present; unliking twice is a no-op.
func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error
	return translate(err, "Post", postID, "")
}

func (r *postRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *postRepository) ListLikers(ctx context.Context, postID uint, page Page) ([]models.User, error) {
	var users []models.User
	err := page.apply(r.db.WithContext(ctx).
		Joins("JOIN likes ON likes.user_id = users.id").
		Where("likes.post_id = ?", postID).
		Order("likes.created_at DESC")).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// ListLikedByUser is the per-user like history, newest like first. Only
// approved posts are returned.
func (r *postRepository) ListLikedByUser(ctx context.Context, userID uint, page Page) ([]*models.Post, error) {
	var posts []*models.Post
	err := page.apply(r.applyPostDetails(r.db.WithContext(ctx), userID).
		Preload("Author").
		Joins("JOIN likes AS my_likes ON my_likes.post_id = posts.id AND my_likes.user_id = ?", userID).
		Where("posts.status = ?", models.ContentStatusApproved).
		Order("my_likes.created_at DESC")).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Vote records the user's single choice for a poll; a later vote replaces
// the earlier one in one statement.
func (r *postRepository) Vote(ctx context.Context, postID, optionID, userID uint) error {
	now := time.Now().UTC()
	vote := &models.PollVote{PostID: postID, UserID: userID, PollOptionID: optionID, CreatedAt: now, UpdatedAt: now}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"poll_option_id", "updated_at"}),
		}).
		Create(vote).Error
	return translate(err, "Poll", postID, "")
}
