// Package permissions decides what an actor may do inside a community.
//
// Everything here is a pure function of the membership row, the community and
// the actor's global role. Callers pass the current time so suspensions whose
// end date has passed are treated as lapsed without a write.
package permissions

import (
	"time"

	"alumnihub/internal/models"
)

// Defaults returns the role-derived permission set for a membership in a
// community with the given settings.
func Defaults(role models.MembershipRole, settings models.CommunitySettings) models.Permissions {
	if role.IsStaff() {
		return models.Permissions{CanPost: true, CanComment: true, CanInvite: true, CanModerate: true}
	}
	return models.Permissions{
		CanPost:    true,
		CanComment: true,
		CanInvite:  settings.AllowMemberInvites,
	}
}

// SuspensionLapsed reports whether m is suspended with an end date at or before now.
func SuspensionLapsed(m *models.Membership, now time.Time) bool {
	return m != nil &&
		m.Status == models.MembershipStatusSuspended &&
		m.SuspensionEndDate != nil &&
		!m.SuspensionEndDate.After(now)
}

// EffectiveStatus is the membership status after lazy suspension expiry.
func EffectiveStatus(m *models.Membership, now time.Time) models.MembershipStatus {
	if m == nil {
		return ""
	}
	if SuspensionLapsed(m, now) {
		return models.MembershipStatusApproved
	}
	return m.Status
}

// Effective resolves the permission set of m. Overrides replace the role
// default for post, comment and invite. CanModerate always follows the role.
// A membership that is not approved holds no permissions.
func Effective(m *models.Membership, settings models.CommunitySettings, now time.Time) models.Permissions {
	if m == nil || EffectiveStatus(m, now) != models.MembershipStatusApproved {
		return models.Permissions{}
	}
	p := Defaults(m.Role, settings)
	if m.Overrides.CanPost != nil {
		p.CanPost = *m.Overrides.CanPost
	}
	if m.Overrides.CanComment != nil {
		p.CanComment = *m.Overrides.CanComment
	}
	if m.Overrides.CanInvite != nil {
		p.CanInvite = *m.Overrides.CanInvite
	}
	p.CanModerate = m.Role.IsStaff()
	return p
}

// CanModerate is true iff the membership is approved and carries a staff role.
func CanModerate(m *models.Membership, now time.Time) bool {
	return m != nil && EffectiveStatus(m, now) == models.MembershipStatusApproved && m.Role.IsStaff()
}

// CanInvite is true iff the membership is approved and its effective canInvite is set.
func CanInvite(m *models.Membership, settings models.CommunitySettings, now time.Time) bool {
	return Effective(m, settings, now).CanInvite
}

// Subject bundles everything needed to decide an action in one community.
// Membership may be nil when the actor has never joined.
type Subject struct {
	Actor      models.Actor
	Community  *models.Community
	Membership *models.Membership
	Now        time.Time
}

// InTenant reports whether the community belongs to the actor's tenant.
// Super admins see every tenant.
func (s Subject) InTenant() bool {
	if s.Community == nil {
		return false
	}
	return s.Actor.IsSuperAdmin() || s.Actor.TenantID == s.Community.TenantID
}

// Bypass reports whether the actor skips membership checks: the community
// creator, a super admin, or the college admin of the community's tenant.
func (s Subject) Bypass() bool {
	if s.Community == nil {
		return false
	}
	return s.Community.IsCreator(s.Actor.UserID) || s.Actor.AdministersTenant(s.Community.TenantID)
}

// Status is the actor's effective membership status, empty when none.
func (s Subject) Status() models.MembershipStatus {
	return EffectiveStatus(s.Membership, s.Now)
}

// IsMember reports whether the actor still belongs to the community.
// Suspended members keep read access.
func (s Subject) IsMember() bool {
	st := s.Status()
	return st == models.MembershipStatusApproved || st == models.MembershipStatusSuspended
}

// Permissions returns the actor's effective permission set.
func (s Subject) Permissions() models.Permissions {
	if s.Bypass() {
		return models.Permissions{CanPost: true, CanComment: true, CanInvite: true, CanModerate: true}
	}
	if s.Community == nil {
		return models.Permissions{}
	}
	return Effective(s.Membership, s.Community.Settings, s.Now)
}

// CanView reports whether the actor may read the community's content.
func (s Subject) CanView() bool {
	if !s.InTenant() {
		return false
	}
	if !s.Community.Type.RequiresMembershipToView() {
		return true
	}
	return s.Bypass() || s.IsMember()
}

// CanModerate reports whether the actor may moderate content and members.
func (s Subject) CanModerate() bool {
	return s.Bypass() || CanModerate(s.Membership, s.Now)
}

// CanAdminister reports whether the actor may change roles, permissions and settings.
func (s Subject) CanAdminister() bool {
	if s.Bypass() {
		return true
	}
	return s.Membership != nil &&
		s.Membership.Role == models.MembershipRoleAdmin &&
		s.Status() == models.MembershipStatusApproved
}

// CanInvite reports whether the actor may invite users.
func (s Subject) CanInvite() bool {
	return s.Permissions().CanInvite
}

// CanPost reports whether the actor may create posts. Communities that
// disallow member posts restrict posting to moderators.
func (s Subject) CanPost() bool {
	if s.CanModerate() {
		return true
	}
	if s.Community == nil || !s.Community.Settings.AllowMemberPosts {
		return false
	}
	return s.Permissions().CanPost
}

// CanComment reports whether the actor may comment.
func (s Subject) CanComment() bool {
	return s.Permissions().CanComment
}

// RequiresApproval reports whether new content from the actor starts pending.
func (s Subject) RequiresApproval() bool {
	return s.Community != nil && s.Community.Settings.RequirePostApproval && !s.CanModerate()
}

// InitialContentStatus is the status new posts and comments by the actor get.
func (s Subject) InitialContentStatus() models.ContentStatus {
	if s.RequiresApproval() {
		return models.ContentStatusPending
	}
	return models.ContentStatusApproved
}
