package models

import "time"

// ReportEntityType names what a report points at.
type ReportEntityType string

const (
	ReportEntityPost    ReportEntityType = "post"
	ReportEntityComment ReportEntityType = "comment"
)

// Valid reports whether t is a reportable entity type.
func (t ReportEntityType) Valid() bool {
	return t == ReportEntityPost || t == ReportEntityComment
}

// ReportReason is the reporter's stated reason.
type ReportReason string

const (
	ReportReasonSpam          ReportReason = "spam"
	ReportReasonHarassment    ReportReason = "harassment"
	ReportReasonHateSpeech    ReportReason = "hate_speech"
	ReportReasonInappropriate ReportReason = "inappropriate"
	ReportReasonMisinfo       ReportReason = "misinformation"
	ReportReasonOther         ReportReason = "other"
)

// Valid reports whether r is a known reason.
func (r ReportReason) Valid() bool {
	switch r {
	case ReportReasonSpam, ReportReasonHarassment, ReportReasonHateSpeech,
		ReportReasonInappropriate, ReportReasonMisinfo, ReportReasonOther:
		return true
	}
	return false
}

// ReportStatus is the triage state of a report.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewed  ReportStatus = "reviewed"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// CanTransitionTo reports whether a report may move from s to next.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case ReportStatusPending:
		return next == ReportStatusReviewed || next == ReportStatusResolved || next == ReportStatusDismissed
	case ReportStatusReviewed:
		return next == ReportStatusResolved || next == ReportStatusDismissed
	}
	return false
}

// Report is a user complaint about a post or comment. One report per
// (reporter, entity) pair.
type Report struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	TenantID         uint             `gorm:"not null;index" json:"tenant_id"`
	ReporterID       uint             `gorm:"not null;uniqueIndex:idx_report_reporter_entity" json:"reporter_id"`
	Reporter         *User            `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	EntityType       ReportEntityType `gorm:"type:varchar(20);not null;uniqueIndex:idx_report_reporter_entity" json:"entity_type"`
	EntityID         uint             `gorm:"not null;uniqueIndex:idx_report_reporter_entity;index" json:"entity_id"`
	CommunityID      uint             `gorm:"not null;index" json:"community_id"`
	Reason           ReportReason     `gorm:"type:varchar(30);not null" json:"reason"`
	Description      string           `gorm:"type:text" json:"description"`
	Status           ReportStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedByUserID *uint            `json:"reviewed_by_user_id,omitempty"`
	ReviewedAt       *time.Time       `json:"reviewed_at,omitempty"`
	ReviewNotes      string           `gorm:"type:text" json:"review_notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
