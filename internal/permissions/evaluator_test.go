package permissions

import (
	"testing"
	"time"

	"alumnihub/internal/models"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestCanModerateTracksRoleAndStatus(t *testing.T) {
	t.Parallel()
	now := time.Now()

	roles := []models.MembershipRole{models.MembershipRoleMember, models.MembershipRoleModerator, models.MembershipRoleAdmin}
	statuses := []models.MembershipStatus{
		models.MembershipStatusPending, models.MembershipStatusApproved, models.MembershipStatusRejected,
		models.MembershipStatusSuspended, models.MembershipStatusLeft,
	}

	for _, role := range roles {
		for _, status := range statuses {
			m := &models.Membership{Role: role, Status: status}
			p := Effective(m, models.CommunitySettings{}, now)
			want := role.IsStaff() && status == models.MembershipStatusApproved
			assert.Equal(t, want, p.CanModerate, "role=%s status=%s", role, status)
			assert.Equal(t, want, CanModerate(m, now), "role=%s status=%s", role, status)
		}
	}
}

func TestRoleChangeKeepsCanModerateInSync(t *testing.T) {
	t.Parallel()
	now := time.Now()
	m := &models.Membership{Role: models.MembershipRoleMember, Status: models.MembershipStatusApproved}

	assert.False(t, Effective(m, models.CommunitySettings{}, now).CanModerate)

	m.Role = models.MembershipRoleModerator
	assert.True(t, Effective(m, models.CommunitySettings{}, now).CanModerate)

	m.Role = models.MembershipRoleMember
	assert.False(t, Effective(m, models.CommunitySettings{}, now).CanModerate)
}

func TestOverridesSurviveRoleChange(t *testing.T) {
	t.Parallel()
	now := time.Now()
	m := &models.Membership{
		Role:      models.MembershipRoleModerator,
		Status:    models.MembershipStatusApproved,
		Overrides: models.PermissionOverrides{CanInvite: boolPtr(false)},
	}

	assert.False(t, Effective(m, models.CommunitySettings{}, now).CanInvite)

	m.Role = models.MembershipRoleMember
	p := Effective(m, models.CommunitySettings{}, now)
	assert.False(t, p.CanInvite)
	assert.False(t, p.CanModerate)

	m.Role = models.MembershipRoleModerator
	p = Effective(m, models.CommunitySettings{}, now)
	assert.False(t, p.CanInvite, "override must not be reset by role churn")
	assert.True(t, p.CanModerate)
	assert.True(t, p.CanPost)

	granted := &models.Membership{
		Role:      models.MembershipRoleMember,
		Status:    models.MembershipStatusApproved,
		Overrides: models.PermissionOverrides{CanInvite: boolPtr(true)},
	}
	assert.True(t, Effective(granted, models.CommunitySettings{}, now).CanInvite)
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	member := Defaults(models.MembershipRoleMember, models.CommunitySettings{})
	assert.Equal(t, models.Permissions{CanPost: true, CanComment: true}, member)

	assert.False(t, Defaults(models.MembershipRoleMember, models.DefaultCommunitySettings()).CanInvite,
		"members cannot invite unless the community opts in")

	invites := Defaults(models.MembershipRoleMember, models.CommunitySettings{AllowMemberInvites: true})
	assert.True(t, invites.CanInvite)
	assert.False(t, invites.CanModerate)

	full := models.Permissions{CanPost: true, CanComment: true, CanInvite: true, CanModerate: true}
	assert.Equal(t, full, Defaults(models.MembershipRoleModerator, models.CommunitySettings{}))
	assert.Equal(t, full, Defaults(models.MembershipRoleAdmin, models.CommunitySettings{}))
}

func TestSuspensionLapsesLazily(t *testing.T) {
	t.Parallel()
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	lapsed := &models.Membership{Role: models.MembershipRoleModerator, Status: models.MembershipStatusSuspended, SuspensionEndDate: &past}
	assert.True(t, SuspensionLapsed(lapsed, now))
	assert.Equal(t, models.MembershipStatusApproved, EffectiveStatus(lapsed, now))
	assert.True(t, CanModerate(lapsed, now))

	active := &models.Membership{Role: models.MembershipRoleModerator, Status: models.MembershipStatusSuspended, SuspensionEndDate: &future}
	assert.False(t, SuspensionLapsed(active, now))
	assert.False(t, CanModerate(active, now))

	indefinite := &models.Membership{Role: models.MembershipRoleMember, Status: models.MembershipStatusSuspended}
	assert.Equal(t, models.MembershipStatusSuspended, EffectiveStatus(indefinite, now))
}

func TestSubjectBypass(t *testing.T) {
	t.Parallel()
	now := time.Now()
	community := &models.Community{ID: 1, TenantID: 7, CreatedByUserID: 10, Type: models.CommunityTypeHidden}

	tests := []struct {
		name   string
		actor  models.Actor
		bypass bool
		view   bool
	}{
		{"creator", models.Actor{UserID: 10, TenantID: 7, Role: models.RoleMember}, true, true},
		{"super admin other tenant", models.Actor{UserID: 11, TenantID: 99, Role: models.RoleSuperAdmin}, true, true},
		{"college admin same tenant", models.Actor{UserID: 12, TenantID: 7, Role: models.RoleCollegeAdmin}, true, true},
		{"college admin other tenant", models.Actor{UserID: 13, TenantID: 8, Role: models.RoleCollegeAdmin}, false, false},
		{"stranger", models.Actor{UserID: 14, TenantID: 7, Role: models.RoleStaff}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Subject{Actor: tt.actor, Community: community, Now: now}
			assert.Equal(t, tt.bypass, s.Bypass())
			assert.Equal(t, tt.bypass, s.CanModerate())
			assert.Equal(t, tt.view, s.CanView())
		})
	}
}

func TestSubjectVisibilityByCommunityType(t *testing.T) {
	t.Parallel()
	now := time.Now()
	actor := models.Actor{UserID: 20, TenantID: 1, Role: models.RoleMember}

	for _, typ := range []models.CommunityType{models.CommunityTypeOpen, models.CommunityTypeClosed, models.CommunityTypeHidden} {
		community := &models.Community{TenantID: 1, CreatedByUserID: 1, Type: typ}
		outsider := Subject{Actor: actor, Community: community, Now: now}
		assert.Equal(t, typ == models.CommunityTypeOpen, outsider.CanView(), "type=%s", typ)

		pending := Subject{Actor: actor, Community: community, Now: now,
			Membership: &models.Membership{Status: models.MembershipStatusPending, Role: models.MembershipRoleMember}}
		assert.Equal(t, typ == models.CommunityTypeOpen, pending.CanView(), "type=%s", typ)

		member := Subject{Actor: actor, Community: community, Now: now,
			Membership: &models.Membership{Status: models.MembershipStatusApproved, Role: models.MembershipRoleMember}}
		assert.True(t, member.CanView(), "type=%s", typ)
	}
}

func TestInitialContentStatus(t *testing.T) {
	t.Parallel()
	now := time.Now()
	community := &models.Community{TenantID: 1, CreatedByUserID: 1, Type: models.CommunityTypeOpen,
		Settings: models.CommunitySettings{AllowMemberPosts: true, RequirePostApproval: true}}
	actor := models.Actor{UserID: 5, TenantID: 1, Role: models.RoleMember}

	member := Subject{Actor: actor, Community: community, Now: now,
		Membership: &models.Membership{Role: models.MembershipRoleMember, Status: models.MembershipStatusApproved}}
	assert.Equal(t, models.ContentStatusPending, member.InitialContentStatus())

	moderator := Subject{Actor: actor, Community: community, Now: now,
		Membership: &models.Membership{Role: models.MembershipRoleModerator, Status: models.MembershipStatusApproved}}
	assert.Equal(t, models.ContentStatusApproved, moderator.InitialContentStatus())

	community.Settings.RequirePostApproval = false
	assert.Equal(t, models.ContentStatusApproved, member.InitialContentStatus())
}

func TestCanPostRespectsAllowMemberPosts(t *testing.T) {
	t.Parallel()
	now := time.Now()
	community := &models.Community{TenantID: 1, CreatedByUserID: 1, Settings: models.CommunitySettings{AllowMemberPosts: false}}
	actor := models.Actor{UserID: 5, TenantID: 1, Role: models.RoleMember}

	member := Subject{Actor: actor, Community: community, Now: now,
		Membership: &models.Membership{Role: models.MembershipRoleMember, Status: models.MembershipStatusApproved}}
	assert.False(t, member.CanPost())

	moderator := Subject{Actor: actor, Community: community, Now: now,
		Membership: &models.Membership{Role: models.MembershipRoleModerator, Status: models.MembershipStatusApproved}}
	assert.True(t, moderator.CanPost())

	revoked := Subject{Actor: actor, Community: &models.Community{TenantID: 1, Settings: models.CommunitySettings{AllowMemberPosts: true}}, Now: now,
		Membership: &models.Membership{Role: models.MembershipRoleMember, Status: models.MembershipStatusApproved,
			Overrides: models.PermissionOverrides{CanPost: boolPtr(false)}}}
	assert.False(t, revoked.CanPost())
}
