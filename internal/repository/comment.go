package repository

import (
	"context"
	"time"

	"alumnihub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentFilter controls which comments of a post are returned.
type CommentFilter struct {
	PostID    uint
	ViewerID  uint
	Moderator bool
}

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error)
	ListByPost(ctx context.Context, f CommentFilter) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	SetStatus(ctx context.Context, comment *models.Comment, status models.ContentStatus, action *models.ModerationAction) error
	Like(ctx context.Context, userID, commentID uint) error
	Unlike(ctx context.Context, userID, commentID uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return translate(r.db.WithContext(ctx).Omit("Author").Create(comment).Error, "Comment", comment.ID, "")
}

func (r *commentRepository) applyCommentDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "comments.*, (SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id) AS likes_count"
	if viewerID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM comment_likes WHERE comment_likes.comment_id = comments.id AND comment_likes.user_id = ?) AS liked", viewerID)
	}
	return db.Select(selectQuery + ", 0 = 1 AS liked")
}

func (r *commentRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.applyCommentDetails(r.db.WithContext(ctx), viewerID).Preload("Author").First(&comment, id).Error
	if err != nil {
		return nil, translate(err, "Comment", id, "")
	}
	return &comment, nil
}

// ListByPost returns the post's comments oldest first as a flat list;
// callers assemble replies under their parents.
func (r *commentRepository) ListByPost(ctx context.Context, f CommentFilter) ([]*models.Comment, error) {
	q := r.applyCommentDetails(r.db.WithContext(ctx), f.ViewerID).
		Preload("Author").
		Where("comments.post_id = ?", f.PostID)
	if f.Moderator {
		q = q.Where("comments.status <> ?", models.ContentStatusDeleted)
	} else {
		q = q.Where("comments.status = ? OR (comments.author_id = ? AND comments.status IN ?)",
			models.ContentStatusApproved, f.ViewerID,
			[]models.ContentStatus{models.ContentStatusPending, models.ContentStatusRejected})
	}

	var comments []*models.Comment
	if err := q.Order("comments.created_at ASC, comments.id ASC").Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Model(comment).Select("content").Updates(comment).Error
	return translate(err, "Comment", comment.ID, "")
}

// SetStatus moves the comment through its lifecycle; deletion is soft.
func (r *commentRepository) SetStatus(ctx context.Context, comment *models.Comment, status models.ContentStatus, action *models.ModerationAction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": status, "updated_at": time.Now().UTC()}
		if err := tx.Model(&models.Comment{}).Where("id = ?", comment.ID).Updates(updates).Error; err != nil {
			return err
		}
		if status == models.ContentStatusDeleted {
			if err := tx.Delete(&models.Comment{}, comment.ID).Error; err != nil {
				return err
			}
		}
		return appendAction(tx, action)
	})
	if err != nil {
		return translate(err, "Comment", comment.ID, "")
	}
	comment.Status = status
	return nil
}

func (r *commentRepository) Like(ctx context.Context, userID, commentID uint) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "comment_id"}}, DoNothing: true}).
		Create(&models.CommentLike{UserID: userID, CommentID: commentID}).Error
	return translate(err, "Comment", commentID, "")
}

func (r *commentRepository) Unlike(ctx context.Context, userID, commentID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&models.CommentLike{}).Error
	return translate(err, "Comment", commentID, "")
}
