package models

import (
	"time"

	"gorm.io/gorm"
)

// CommunityType controls who can see and join a community.
type CommunityType string

const (
	// CommunityTypeOpen communities are listed and joinable instantly.
	CommunityTypeOpen CommunityType = "open"
	// CommunityTypeClosed communities are listed but joining needs approval.
	CommunityTypeClosed CommunityType = "closed"
	// CommunityTypeHidden communities are unlisted and invite-only.
	CommunityTypeHidden CommunityType = "hidden"
)

// Valid reports whether t is a known community type.
func (t CommunityType) Valid() bool {
	return t == CommunityTypeOpen || t == CommunityTypeClosed || t == CommunityTypeHidden
}

// RequiresMembershipToView reports whether content is restricted to active members.
func (t CommunityType) RequiresMembershipToView() bool {
	return t == CommunityTypeClosed || t == CommunityTypeHidden
}

// CommunitySettings are the per-community policy switches.
type CommunitySettings struct {
	AllowMemberPosts    bool `gorm:"not null" json:"allow_member_posts"`
	RequirePostApproval bool `gorm:"not null;default:false" json:"require_post_approval"`
	AllowMemberInvites  bool `gorm:"not null;default:false" json:"allow_member_invites"`
}

// DefaultCommunitySettings are applied when a community is created without
// explicit settings.
func DefaultCommunitySettings() CommunitySettings {
	return CommunitySettings{AllowMemberPosts: true}
}

// Community is a tenant-scoped group with its own membership ledger.
// MemberCount and PostCount are recomputed from the ledger and the posts
// table inside the transaction that changes them.
type Community struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	TenantID        uint              `gorm:"not null;uniqueIndex:idx_community_tenant_slug" json:"tenant_id"`
	Name            string            `gorm:"size:120;not null" json:"name"`
	Slug            string            `gorm:"size:140;not null;uniqueIndex:idx_community_tenant_slug" json:"slug"`
	Description     string            `gorm:"type:text" json:"description"`
	Type            CommunityType     `gorm:"type:varchar(20);not null;default:'open'" json:"type"`
	CategoryID      *uint             `gorm:"index" json:"category_id,omitempty"`
	Settings        CommunitySettings `gorm:"embedded;embeddedPrefix:setting_" json:"settings"`
	CreatedByUserID uint              `gorm:"not null;index" json:"created_by_user_id"`
	CreatedByUser   *User             `gorm:"foreignKey:CreatedByUserID" json:"created_by_user,omitempty"`
	MemberCount     int               `gorm:"not null;default:0" json:"member_count"`
	PostCount       int               `gorm:"not null;default:0" json:"post_count"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"index" json:"-"`
}

// TableName specifies the table name for GORM.
func (Community) TableName() string {
	return "communities"
}

// IsCreator reports whether userID created the community.
func (c *Community) IsCreator(userID uint) bool {
	return c != nil && userID != 0 && c.CreatedByUserID == userID
}
