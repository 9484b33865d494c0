package service

import (
	"context"
	"testing"
	"time"

	"alumnihub/internal/models"
	"alumnihub/internal/notifications"
	"alumnihub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipService_JoinByCommunityType(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, _ := env.user(t, 1, models.RoleMember)
	_, alice := env.user(t, 1, models.RoleMember)

	open := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	closed := env.community(t, owner, models.CommunityTypeClosed, openSettings())
	hidden := env.community(t, owner, models.CommunityTypeHidden, openSettings())

	t.Run("open admits immediately", func(t *testing.T) {
		m, err := env.memberships.Join(ctx, alice, open.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipStatusApproved, m.Status)
		assert.NotNil(t, m.JoinedAt)
		assert.True(t, m.Permissions.CanPost)
		assert.False(t, m.Permissions.CanModerate)
		assert.Equal(t, 2, env.reload(t, open.ID).MemberCount)
	})

	t.Run("closed queues the request", func(t *testing.T) {
		m, err := env.memberships.Join(ctx, alice, closed.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipStatusPending, m.Status)
		assert.Nil(t, m.JoinedAt)
		assert.Equal(t, 1, env.reload(t, closed.ID).MemberCount)
	})

	t.Run("hidden is invite only", func(t *testing.T) {
		_, err := env.memberships.Join(ctx, alice, hidden.ID)
		assertCode(t, err, models.CodeForbidden)
	})

	t.Run("active membership conflicts", func(t *testing.T) {
		_, err := env.memberships.Join(ctx, alice, open.ID)
		assertCode(t, err, models.CodeConflict)
		_, err = env.memberships.Join(ctx, alice, closed.ID)
		assertCode(t, err, models.CodeConflict)
	})

	t.Run("other tenant sees nothing", func(t *testing.T) {
		_, stranger := env.user(t, 2, models.RoleMember)
		_, err := env.memberships.Join(ctx, stranger, open.ID)
		assertCode(t, err, models.CodeNotFound)
	})
}

func TestMembershipService_RejoinReactivatesLedgerRow(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	_, bob := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeOpen, openSettings())

	first, err := env.memberships.Join(ctx, bob, c.ID)
	require.NoError(t, err)
	revoke := false
	_, err = env.memberships.UpdateModeratorPermissions(ctx, ownerActor, first.ID, PermissionsInput{CanPost: &revoke})
	require.NoError(t, err)
	require.NoError(t, env.memberships.Leave(ctx, bob, c.ID))
	assert.Equal(t, 1, env.reload(t, c.ID).MemberCount)

	again, err := env.memberships.Join(ctx, bob, c.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, models.MembershipStatusApproved, again.Status)
	assert.Nil(t, again.Overrides.CanPost)
	assert.True(t, again.Permissions.CanPost)
	assert.Nil(t, again.LeftAt)
	assert.Equal(t, 2, env.reload(t, c.ID).MemberCount)
}

func TestMembershipService_ApproveIsIdempotent(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	carol, carolActor := env.user(t, 1, models.RoleMember)
	_, outsider := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeClosed, openSettings())

	pending, err := env.memberships.Join(ctx, carolActor, c.ID)
	require.NoError(t, err)

	_, err = env.memberships.Approve(ctx, outsider, pending.ID)
	assertCode(t, err, models.CodeForbidden)

	approved, err := env.memberships.Approve(ctx, ownerActor, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, approved.JoinedAt)
	joinedAt := *approved.JoinedAt
	assert.Equal(t, owner.ID, *approved.ApprovedByUserID)

	env.memberships.now = func() time.Time { return joinedAt.Add(time.Hour) }
	again, err := env.memberships.Approve(ctx, ownerActor, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusApproved, again.Status)
	assert.True(t, joinedAt.Equal(*again.JoinedAt))

	assert.EqualValues(t, 1, env.countActions(t, models.ActionMembershipApprove))
	assert.Equal(t, 2, env.reload(t, c.ID).MemberCount)
	assert.Equal(t, []notifications.EventType{notifications.EventMembershipApproved}, env.notifier.events(carol.ID))
	assert.Equal(t, []models.ModerationActionType{models.ActionMembershipApprove}, env.publisher.published())
}

func TestMembershipService_RejectOnlyPending(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	_, dave := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeClosed, openSettings())

	pending, err := env.memberships.Join(ctx, dave, c.ID)
	require.NoError(t, err)
	rejected, err := env.memberships.Reject(ctx, ownerActor, pending.ID, "not an alumnus")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusRejected, rejected.Status)

	_, err = env.memberships.Reject(ctx, ownerActor, pending.ID, "")
	assertCode(t, err, models.CodeValidation)

	requeued, err := env.memberships.Join(ctx, dave, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusPending, requeued.Status)
}

func TestMembershipService_SuspendGuards(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	coAdmin, coAdminActor := env.user(t, 1, models.RoleMember)
	mod, modActor := env.user(t, 1, models.RoleMember)
	eve, eveActor := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeOpen, openSettings())

	coAdminM := env.member(t, c, coAdmin, models.MembershipRoleAdmin)
	modM := env.member(t, c, mod, models.MembershipRoleModerator)
	eveM := env.member(t, c, eve, models.MembershipRoleMember)
	ownerM := env.membershipRow(t, c.ID, owner.ID)

	future := time.Now().UTC().Add(48 * time.Hour)
	past := time.Now().UTC().Add(-time.Minute)

	t.Run("self suspension is refused before permissions", func(t *testing.T) {
		_, err := env.memberships.Suspend(ctx, ownerActor, ownerM.ID, SuspendInput{Reason: "x"})
		assertCode(t, err, models.CodeValidation)
		_, err = env.memberships.Suspend(ctx, eveActor, eveM.ID, SuspendInput{Reason: "x"})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("plain members cannot suspend", func(t *testing.T) {
		_, err := env.memberships.Suspend(ctx, eveActor, modM.ID, SuspendInput{Reason: "x"})
		assertCode(t, err, models.CodeForbidden)
	})

	t.Run("moderators cannot touch admins", func(t *testing.T) {
		_, err := env.memberships.Suspend(ctx, modActor, coAdminM.ID, SuspendInput{Reason: "x"})
		assertCode(t, err, models.CodeForbidden)
	})

	t.Run("creator is untouchable", func(t *testing.T) {
		_, err := env.memberships.Suspend(ctx, coAdminActor, ownerM.ID, SuspendInput{Reason: "x"})
		assertCode(t, err, models.CodeForbidden)
	})

	t.Run("reason is required", func(t *testing.T) {
		_, err := env.memberships.Suspend(ctx, modActor, eveM.ID, SuspendInput{Reason: "   "})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("end date must be in the future", func(t *testing.T) {
		_, err := env.memberships.Suspend(ctx, modActor, eveM.ID, SuspendInput{Reason: "spam", EndDate: &past})
		assertCode(t, err, models.CodeValidation)
	})

	t.Run("moderator suspends a member", func(t *testing.T) {
		m, err := env.memberships.Suspend(ctx, modActor, eveM.ID, SuspendInput{Reason: "spam", EndDate: &future})
		require.NoError(t, err)
		assert.Equal(t, models.MembershipStatusSuspended, m.Status)
		assert.Equal(t, mod.ID, *m.SuspendedByUserID)
		assert.Equal(t, models.Permissions{}, m.Permissions)

		count := env.reload(t, c.ID).MemberCount
		assert.Equal(t, 4, count, "suspended members still count")
		assert.Contains(t, env.notifier.events(eve.ID), notifications.EventMembershipSuspended)
	})

	t.Run("suspended member loses posting rights", func(t *testing.T) {
		_, err := env.posts.CreatePost(ctx, eveActor, CreatePostInput{CommunityID: c.ID, Content: "still here"})
		assertCode(t, err, models.CodeForbidden)
	})

	t.Run("unsuspend restores the member", func(t *testing.T) {
		m, err := env.memberships.Unsuspend(ctx, modActor, eveM.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipStatusApproved, m.Status)
		assert.Nil(t, m.SuspensionEndDate)
		assert.Empty(t, m.SuspensionReason)
		assert.True(t, m.Permissions.CanPost)

		_, err = env.memberships.Unsuspend(ctx, modActor, eveM.ID)
		assertCode(t, err, models.CodeValidation)
	})
}

func TestMembershipService_SuspensionExpiry(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	frank, frankActor := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeClosed, openSettings())
	m := env.member(t, c, frank, models.MembershipRoleMember)

	base := time.Now().UTC()
	end := base.Add(time.Hour)
	_, err := env.memberships.Suspend(ctx, ownerActor, m.ID, SuspendInput{Reason: "cool off", EndDate: &end})
	require.NoError(t, err)

	_, err = env.posts.CreatePost(ctx, frankActor, CreatePostInput{CommunityID: c.ID, Content: "hello"})
	assertCode(t, err, models.CodeForbidden)

	later := base.Add(2 * time.Hour)
	env.memberships.now = func() time.Time { return later }
	env.posts.now = func() time.Time { return later }

	t.Run("lapsed suspension reads as approved", func(t *testing.T) {
		mine, err := env.memberships.ListMyMemberships(ctx, frankActor, nil)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, models.MembershipStatusApproved, mine[0].Status)
		assert.True(t, mine[0].Permissions.CanPost)

		_, err = env.posts.CreatePost(ctx, frankActor, CreatePostInput{CommunityID: c.ID, Content: "back again"})
		require.NoError(t, err)
	})

	t.Run("sweeper persists the expiry", func(t *testing.T) {
		assert.Equal(t, models.MembershipStatusSuspended, env.membershipRow(t, c.ID, frank.ID).Status)

		n, err := env.memberships.ExpireSuspensions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		row := env.membershipRow(t, c.ID, frank.ID)
		assert.Equal(t, models.MembershipStatusApproved, row.Status)
		assert.Nil(t, row.SuspensionEndDate)

		var action models.ModerationAction
		require.NoError(t, env.db.Where("action = ?", models.ActionMembershipExpire).First(&action).Error)
		assert.Zero(t, action.ActorID)
		assert.Equal(t, frank.ID, *action.TargetUserID)

		n, err = env.memberships.ExpireSuspensions(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMembershipService_SweepSkipsDeletedCommunities(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	ana, _ := env.user(t, 1, models.RoleMember)
	ben, _ := env.user(t, 1, models.RoleMember)
	gone := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	live := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	anaM := env.member(t, gone, ana, models.MembershipRoleMember)
	benM := env.member(t, live, ben, models.MembershipRoleMember)

	base := time.Now().UTC()
	first, second := base.Add(time.Hour), base.Add(2*time.Hour)
	_, err := env.memberships.Suspend(ctx, ownerActor, anaM.ID, SuspendInput{Reason: "spam", EndDate: &first})
	require.NoError(t, err)
	_, err = env.memberships.Suspend(ctx, ownerActor, benM.ID, SuspendInput{Reason: "spam", EndDate: &second})
	require.NoError(t, err)

	require.NoError(t, env.db.Delete(&models.Community{}, gone.ID).Error)

	later := base.Add(3 * time.Hour)
	env.memberships.now = func() time.Time { return later }

	n, err := env.memberships.ExpireSuspensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.MembershipStatusApproved, env.membershipRow(t, live.ID, ben.ID).Status)
	assert.Contains(t, env.notifier.events(ben.ID), notifications.EventMembershipReinstated)
	assert.Equal(t, int64(1), env.countActions(t, models.ActionMembershipExpire))

	n, err = env.memberships.ExpireSuspensions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMembershipService_PromoteDemote(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	coAdmin, _ := env.user(t, 1, models.RoleMember)
	mod, modActor := env.user(t, 1, models.RoleMember)
	gina, _ := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	coAdminM := env.member(t, c, coAdmin, models.MembershipRoleAdmin)
	modM := env.member(t, c, mod, models.MembershipRoleModerator)
	ginaM := env.member(t, c, gina, models.MembershipRoleMember)

	_, err := env.memberships.Promote(ctx, modActor, ginaM.ID)
	assertCode(t, err, models.CodeForbidden)

	promoted, err := env.memberships.Promote(ctx, ownerActor, ginaM.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipRoleModerator, promoted.Role)
	assert.True(t, promoted.Permissions.CanModerate)

	_, err = env.memberships.Promote(ctx, ownerActor, ginaM.ID)
	assertCode(t, err, models.CodeValidation)

	_, err = env.memberships.Demote(ctx, modActor, modM.ID)
	assertCode(t, err, models.CodeValidation)

	_, err = env.memberships.Demote(ctx, ownerActor, coAdminM.ID)
	assertCode(t, err, models.CodeValidation)

	demoted, err := env.memberships.Demote(ctx, ownerActor, ginaM.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipRoleMember, demoted.Role)
	assert.False(t, demoted.Permissions.CanModerate)

	staff, err := env.communities.ListModerators(ctx, ownerActor, c.ID)
	require.NoError(t, err)
	assert.Len(t, staff, 3)
}

func TestMembershipService_PermissionOverridesSurviveRoleChanges(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	hank, _ := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	m := env.member(t, c, hank, models.MembershipRoleMember)

	revoke, grant := false, true
	updated, err := env.memberships.UpdateModeratorPermissions(ctx, ownerActor, m.ID, PermissionsInput{CanPost: &revoke, CanInvite: &grant})
	require.NoError(t, err)
	assert.False(t, updated.Permissions.CanPost)
	assert.True(t, updated.Permissions.CanInvite)

	promoted, err := env.memberships.Promote(ctx, ownerActor, m.ID)
	require.NoError(t, err)
	assert.False(t, promoted.Permissions.CanPost, "override outlives the promotion")
	assert.True(t, promoted.Permissions.CanModerate, "moderation follows the role")

	reset, err := env.memberships.UpdateModeratorPermissions(ctx, ownerActor, m.ID, PermissionsInput{Reset: true})
	require.NoError(t, err)
	assert.True(t, reset.Permissions.CanPost)
	assert.Nil(t, reset.Overrides.CanInvite)
}

func TestMembershipService_RemoveAndLeave(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	mod, modActor := env.user(t, 1, models.RoleMember)
	ivy, ivyActor := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	modM := env.member(t, c, mod, models.MembershipRoleModerator)
	ivyM, err := env.memberships.Join(ctx, ivyActor, c.ID)
	require.NoError(t, err)
	require.Equal(t, 3, env.reload(t, c.ID).MemberCount)

	_, err = env.memberships.Remove(ctx, modActor, modM.ID, "")
	assertCode(t, err, models.CodeValidation)

	removed, err := env.memberships.Remove(ctx, modActor, ivyM.ID, "spam")
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusLeft, removed.Status)
	assert.Equal(t, mod.ID, *removed.RemovedByUserID)
	assert.NotNil(t, removed.LeftAt)
	assert.Equal(t, 2, env.reload(t, c.ID).MemberCount)
	assert.Contains(t, env.notifier.events(ivy.ID), notifications.EventMembershipRemoved)

	_, err = env.memberships.Remove(ctx, modActor, ivyM.ID, "")
	assertCode(t, err, models.CodeValidation)

	err = env.memberships.Leave(ctx, ownerActor, c.ID)
	assertCode(t, err, models.CodeValidation)

	err = env.memberships.Leave(ctx, ivyActor, c.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestMembershipService_Invite(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	jack, jackActor := env.user(t, 1, models.RoleMember)
	kim, _ := env.user(t, 1, models.RoleMember)
	foreign, _ := env.user(t, 2, models.RoleMember)

	hidden := env.community(t, owner, models.CommunityTypeHidden, openSettings())
	env.member(t, hidden, jack, models.MembershipRoleMember)

	_, err := env.memberships.Invite(ctx, jackActor, hidden.ID, kim.ID)
	assertCode(t, err, models.CodeForbidden)

	invited, err := env.memberships.Invite(ctx, ownerActor, hidden.ID, kim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipStatusApproved, invited.Status)
	assert.Equal(t, owner.ID, *invited.InvitedByUserID)
	assert.Contains(t, env.notifier.events(kim.ID), notifications.EventMembershipInvited)
	assert.EqualValues(t, 1, env.countActions(t, models.ActionMembershipInvite))

	_, err = env.memberships.Invite(ctx, ownerActor, hidden.ID, kim.ID)
	assertCode(t, err, models.CodeConflict)

	_, err = env.memberships.Invite(ctx, ownerActor, hidden.ID, foreign.ID)
	assertCode(t, err, models.CodeNotFound)

	invitesOn := openSettings()
	invitesOn.AllowMemberInvites = true
	friendly := env.community(t, owner, models.CommunityTypeOpen, invitesOn)
	env.member(t, friendly, jack, models.MembershipRoleMember)
	_, err = env.memberships.Invite(ctx, jackActor, friendly.ID, kim.ID)
	require.NoError(t, err)
}

func TestMembershipService_ListMembersHidesQueueFromMembers(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	lee, leeActor := env.user(t, 1, models.RoleMember)
	_, moActor := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeClosed, openSettings())
	env.member(t, c, lee, models.MembershipRoleMember)
	_, err := env.memberships.Join(ctx, moActor, c.ID)
	require.NoError(t, err)

	members, err := env.memberships.ListMembers(ctx, leeActor, c.ID, ListMembersInput{})
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = env.memberships.ListMembers(ctx, leeActor, c.ID, ListMembersInput{Status: models.MembershipStatusPending})
	assertCode(t, err, models.CodeForbidden)

	queue, err := env.memberships.ListPending(ctx, ownerActor, c.ID, repository.Page{})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, moActor.UserID, queue[0].UserID)
	assert.Equal(t, models.Permissions{}, queue[0].Permissions)

	_, err = env.memberships.ListMembers(ctx, moActor, c.ID, ListMembersInput{})
	assertCode(t, err, models.CodeForbidden)
}
