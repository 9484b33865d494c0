// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// ContentStatus is the moderation state shared by posts and comments.
type ContentStatus string

const (
	ContentStatusApproved ContentStatus = "approved"
	ContentStatusPending  ContentStatus = "pending"
	ContentStatusRejected ContentStatus = "rejected"
	// ContentStatusDeleted is terminal.
	ContentStatusDeleted ContentStatus = "deleted"
)

// PostType distinguishes plain posts from link and poll posts.
type PostType string

const (
	PostTypeText PostType = "text"
	PostTypeLink PostType = "link"
	PostTypePoll PostType = "poll"
)

// Post represents a post inside a community.
type Post struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	CommunityID uint          `gorm:"not null;index" json:"community_id"`
	Community   *Community    `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	AuthorID    uint          `gorm:"not null;index" json:"author_id"`
	Author      *User         `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title       string        `gorm:"size:200" json:"title"`
	Content     string        `gorm:"type:text;not null" json:"content"`
	Type        PostType      `gorm:"type:varchar(20);not null;default:'text'" json:"type"`
	LinkURL     string        `gorm:"size:2048" json:"link_url,omitempty"`
	Status      ContentStatus `gorm:"type:varchar(20);not null;default:'approved';index" json:"status"`
	Pinned      bool          `gorm:"not null;default:false" json:"pinned"`
	ViewCount   int           `gorm:"not null;default:0" json:"view_count"`
	PollOptions []PollOption  `gorm:"foreignKey:PostID" json:"poll_options,omitempty"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this post (computed)
	Liked     bool           `gorm:"->;-:migration" json:"liked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PollOption is one choice of a poll post.
type PollOption struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PostID   uint   `gorm:"not null;index" json:"post_id"`
	Text     string `gorm:"size:200;not null" json:"text"`
	Position int    `gorm:"not null;default:0" json:"position"`
	// VoteCount is not persisted; computed at query time
	VoteCount int `gorm:"->;-:migration" json:"vote_count"`
	// Voted indicates whether the current requesting user picked this option (computed)
	Voted bool `gorm:"->;-:migration" json:"voted"`
}

// PollVote records one user's single choice in a poll. The unique
// (post_id, user_id) index makes the choice exclusive.
type PollVote struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PostID       uint      `gorm:"not null;uniqueIndex:idx_poll_vote_post_user" json:"post_id"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_poll_vote_post_user" json:"user_id"`
	PollOptionID uint      `gorm:"not null;index" json:"poll_option_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
