package models

import "time"

// ModerationEntityType names what a moderation action touched.
type ModerationEntityType string

const (
	ModerationEntityMembership ModerationEntityType = "membership"
	ModerationEntityPost       ModerationEntityType = "post"
	ModerationEntityComment    ModerationEntityType = "comment"
	ModerationEntityReport     ModerationEntityType = "report"
)

// ModerationActionType is the verb recorded in the moderation log.
type ModerationActionType string

const (
	ActionMembershipApprove     ModerationActionType = "membership.approve"
	ActionMembershipReject      ModerationActionType = "membership.reject"
	ActionMembershipSuspend     ModerationActionType = "membership.suspend"
	ActionMembershipUnsuspend   ModerationActionType = "membership.unsuspend"
	ActionMembershipExpire      ModerationActionType = "membership.suspension_expired"
	ActionMembershipPromote     ModerationActionType = "membership.promote"
	ActionMembershipDemote      ModerationActionType = "membership.demote"
	ActionMembershipRemove      ModerationActionType = "membership.remove"
	ActionMembershipInvite      ModerationActionType = "membership.invite"
	ActionMembershipPermissions ModerationActionType = "membership.permissions"
	ActionPostApprove           ModerationActionType = "post.approve"
	ActionPostReject            ModerationActionType = "post.reject"
	ActionPostDelete            ModerationActionType = "post.delete"
	ActionPostPin               ModerationActionType = "post.pin"
	ActionPostUnpin             ModerationActionType = "post.unpin"
	ActionCommentApprove        ModerationActionType = "comment.approve"
	ActionCommentReject         ModerationActionType = "comment.reject"
	ActionCommentDelete         ModerationActionType = "comment.delete"
	ActionReportReview          ModerationActionType = "report.status"
)

// ModerationAction is an append-only audit record. Rows are never updated.
type ModerationAction struct {
	ID           uint                 `gorm:"primaryKey" json:"id"`
	TenantID     uint                 `gorm:"not null;index" json:"tenant_id"`
	CommunityID  uint                 `gorm:"not null;index" json:"community_id"`
	EntityType   ModerationEntityType `gorm:"type:varchar(20);not null;index:idx_moderation_entity" json:"entity_type"`
	EntityID     uint                 `gorm:"not null;index:idx_moderation_entity" json:"entity_id"`
	Action       ModerationActionType `gorm:"type:varchar(40);not null" json:"action"`
	ActorID      uint                 `gorm:"not null;index" json:"actor_id"`
	TargetUserID *uint                `json:"target_user_id,omitempty"`
	Reason       string               `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt    time.Time            `gorm:"index" json:"created_at"`
}
