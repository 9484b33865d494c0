package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a reply on a post. Replies nest exactly one level: a reply's
// ParentCommentID always points at a top-level comment.
type Comment struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	PostID          uint           `gorm:"not null;index" json:"post_id"`
	AuthorID        uint           `gorm:"not null;index" json:"author_id"`
	Author          *User          `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	ParentCommentID *uint          `gorm:"index" json:"parent_comment_id,omitempty"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	Status          ContentStatus  `gorm:"type:varchar(20);not null;default:'approved';index" json:"status"`
	Replies         []*Comment     `gorm:"-" json:"replies,omitempty"`
	LikesCount      int            `gorm:"->;-:migration" json:"likes_count"`
	Liked           bool           `gorm:"->;-:migration" json:"liked"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsReply reports whether the comment hangs under another comment.
func (c *Comment) IsReply() bool {
	return c.ParentCommentID != nil
}
