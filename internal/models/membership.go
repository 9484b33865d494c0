package models

import "time"

// MembershipRole defines a member's role in a community.
type MembershipRole string

const (
	// MembershipRoleAdmin is held by the community creator and co-admins.
	MembershipRoleAdmin MembershipRole = "admin"
	// MembershipRoleModerator can moderate content and members.
	MembershipRoleModerator MembershipRole = "moderator"
	// MembershipRoleMember is the default role.
	MembershipRoleMember MembershipRole = "member"
)

// IsStaff reports whether the role carries moderation rights.
func (r MembershipRole) IsStaff() bool {
	return r == MembershipRoleAdmin || r == MembershipRoleModerator
}

// MembershipStatus is the ledger state of a membership.
type MembershipStatus string

const (
	MembershipStatusPending   MembershipStatus = "pending"
	MembershipStatusApproved  MembershipStatus = "approved"
	MembershipStatusRejected  MembershipStatus = "rejected"
	MembershipStatusSuspended MembershipStatus = "suspended"
	MembershipStatusLeft      MembershipStatus = "left"
)

// Active reports whether the membership still occupies the ledger slot.
// Left and rejected memberships may be reactivated by a new join or invite.
func (s MembershipStatus) Active() bool {
	return s == MembershipStatusPending || s == MembershipStatusApproved || s == MembershipStatusSuspended
}

// Permissions is the effective permission set of a membership.
type Permissions struct {
	CanPost     bool `json:"can_post"`
	CanComment  bool `json:"can_comment"`
	CanInvite   bool `json:"can_invite"`
	CanModerate bool `json:"can_moderate"`
}

// PermissionOverrides are explicit grants or revocations set through the
// moderator-permissions endpoint. Nil means "use the role default". They are
// never reset by a role change.
type PermissionOverrides struct {
	CanPost    *bool `gorm:"column:can_post" json:"can_post,omitempty"`
	CanComment *bool `gorm:"column:can_comment" json:"can_comment,omitempty"`
	CanInvite  *bool `gorm:"column:can_invite" json:"can_invite,omitempty"`
}

// Membership is one row of a community's ledger.
type Membership struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	CommunityID       uint                `gorm:"not null;uniqueIndex:idx_membership_community_user" json:"community_id"`
	Community         *Community          `gorm:"foreignKey:CommunityID" json:"community,omitempty"`
	UserID            uint                `gorm:"not null;uniqueIndex:idx_membership_community_user;index" json:"user_id"`
	User              *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role              MembershipRole      `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	Status            MembershipStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Overrides         PermissionOverrides `gorm:"embedded" json:"permission_overrides"`
	Permissions       Permissions         `gorm:"-" json:"permissions"`
	InvitedByUserID   *uint               `json:"invited_by_user_id,omitempty"`
	ApprovedByUserID  *uint               `json:"approved_by_user_id,omitempty"`
	RemovedByUserID   *uint               `json:"removed_by_user_id,omitempty"`
	SuspendedByUserID *uint               `json:"suspended_by_user_id,omitempty"`
	SuspensionReason  string              `gorm:"type:text" json:"suspension_reason,omitempty"`
	SuspensionEndDate *time.Time          `gorm:"index" json:"suspension_end_date,omitempty"`
	SuspendedAt       *time.Time          `json:"suspended_at,omitempty"`
	JoinedAt          *time.Time          `json:"joined_at,omitempty"`
	LeftAt            *time.Time          `json:"left_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Membership) TableName() string {
	return "community_memberships"
}

// ClearSuspension resets every suspension field.
func (m *Membership) ClearSuspension() {
	m.SuspendedByUserID = nil
	m.SuspensionReason = ""
	m.SuspensionEndDate = nil
	m.SuspendedAt = nil
}
