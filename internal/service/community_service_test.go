package service

import (
	"context"
	"testing"

	"alumnihub/internal/models"
	"alumnihub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommunityService_CreateCommunity(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	founder, founderActor := env.user(t, 1, models.RoleMember)

	c, err := env.communities.CreateCommunity(ctx, founderActor, CreateCommunityInput{Name: "  Class of 2012  "})
	require.NoError(t, err)
	assert.Equal(t, "Class of 2012", c.Name)
	assert.Equal(t, "class-of-2012", c.Slug)
	assert.Equal(t, models.CommunityTypeOpen, c.Type)
	assert.Equal(t, models.DefaultCommunitySettings(), c.Settings)
	assert.Equal(t, 1, env.reload(t, c.ID).MemberCount)

	owner := env.membershipRow(t, c.ID, founder.ID)
	assert.Equal(t, models.MembershipRoleAdmin, owner.Role)
	assert.Equal(t, models.MembershipStatusApproved, owner.Status)
	assert.NotNil(t, owner.JoinedAt)

	_, err = env.communities.CreateCommunity(ctx, founderActor, CreateCommunityInput{Name: "Class of 2012"})
	assertCode(t, err, models.CodeConflict)

	tests := []struct {
		name string
		in   CreateCommunityInput
	}{
		{"blank name", CreateCommunityInput{Name: " "}},
		{"reserved slug", CreateCommunityInput{Name: "Admin"}},
		{"explicit bad slug", CreateCommunityInput{Name: "Rowing", Slug: "Rowing Club"}},
		{"unknown type", CreateCommunityInput{Name: "Rowing", Type: "secret"}},
		{"missing category", CreateCommunityInput{Name: "Rowing", CategoryID: uintPtr(404)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.communities.CreateCommunity(ctx, founderActor, tt.in)
			assertCode(t, err, models.CodeValidation)
		})
	}
}

func TestCommunityService_CategoryMustFit(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	_, founder := env.user(t, 1, models.RoleMember)

	mk := func(tenant uint, typ models.CategoryEntityType, slug string, active bool) *models.Category {
		c := &models.Category{TenantID: tenant, EntityType: typ, Name: slug, Slug: slug, IsActive: active}
		require.NoError(t, env.db.Create(c).Error)
		return c
	}
	chapters := mk(1, models.CategoryEntityCommunity, "chapters", true)
	events := mk(1, models.CategoryEntityEvent, "galas", true)
	retired := mk(1, models.CategoryEntityCommunity, "retired", false)
	foreign := mk(2, models.CategoryEntityCommunity, "abroad", true)

	for _, bad := range []*models.Category{events, retired, foreign} {
		_, err := env.communities.CreateCommunity(ctx, founder, CreateCommunityInput{Name: "Chapter " + bad.Slug, CategoryID: &bad.ID})
		assertCode(t, err, models.CodeValidation)
	}

	c, err := env.communities.CreateCommunity(ctx, founder, CreateCommunityInput{Name: "Boston Chapter", CategoryID: &chapters.ID})
	require.NoError(t, err)
	require.NotNil(t, c.CategoryID)
	assert.Equal(t, chapters.ID, *c.CategoryID)

	listed, err := env.communities.ListCommunities(ctx, founder, ListCommunitiesInput{CategoryID: &chapters.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, c.ID, listed[0].ID)
}

func TestCommunityService_GetByType(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	mem, memActor := env.user(t, 1, models.RoleMember)
	_, outsider := env.user(t, 1, models.RoleMember)
	_, collegeAdmin := env.user(t, 1, models.RoleCollegeAdmin)
	_, foreign := env.user(t, 2, models.RoleMember)

	closed := env.community(t, owner, models.CommunityTypeClosed, openSettings())
	hidden := env.community(t, owner, models.CommunityTypeHidden, openSettings())
	env.member(t, hidden, mem, models.MembershipRoleMember)

	view, err := env.communities.GetCommunity(ctx, outsider, closed.ID)
	require.NoError(t, err)
	assert.False(t, view.CanView)
	assert.Nil(t, view.Membership)

	_, err = env.communities.GetCommunity(ctx, outsider, hidden.ID)
	assertCode(t, err, models.CodeNotFound)
	_, err = env.communities.GetCommunity(ctx, foreign, closed.ID)
	assertCode(t, err, models.CodeNotFound)

	view, err = env.communities.GetCommunity(ctx, memActor, hidden.ID)
	require.NoError(t, err)
	assert.True(t, view.CanView)
	require.NotNil(t, view.Membership)
	assert.True(t, view.Permissions.CanPost)
	assert.False(t, view.Permissions.CanModerate)

	view, err = env.communities.GetCommunity(ctx, collegeAdmin, hidden.ID)
	require.NoError(t, err)
	assert.True(t, view.Permissions.CanModerate)

	bySlug, err := env.communities.GetCommunityBySlug(ctx, ownerActor, " "+hidden.Slug+" ")
	require.NoError(t, err)
	assert.Equal(t, hidden.ID, bySlug.ID)

	forOutsider, err := env.communities.ListCommunities(ctx, outsider, ListCommunitiesInput{})
	require.NoError(t, err)
	require.Len(t, forOutsider, 1)
	assert.Equal(t, closed.ID, forOutsider[0].ID)

	forMember, err := env.communities.ListCommunities(ctx, memActor, ListCommunitiesInput{})
	require.NoError(t, err)
	assert.Len(t, forMember, 2)

	forAdmin, err := env.communities.ListCommunities(ctx, collegeAdmin, ListCommunitiesInput{Type: models.CommunityTypeHidden})
	require.NoError(t, err)
	assert.Len(t, forAdmin, 1)
}

func TestCommunityService_UpdateAndDelete(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	mod, modActor := env.user(t, 1, models.RoleMember)
	coAdmin, coAdminActor := env.user(t, 1, models.RoleMember)
	_, outsider := env.user(t, 1, models.RoleMember)

	c := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	env.member(t, c, mod, models.MembershipRoleModerator)
	env.member(t, c, coAdmin, models.MembershipRoleAdmin)

	name := "Renamed"
	_, err := env.communities.UpdateCommunity(ctx, modActor, c.ID, UpdateCommunityInput{Name: &name})
	assertCode(t, err, models.CodeForbidden)

	closed := models.CommunityTypeClosed
	settings := openSettings()
	settings.RequirePostApproval = true
	updated, err := env.communities.UpdateCommunity(ctx, coAdminActor, c.ID, UpdateCommunityInput{Name: &name, Type: &closed, Settings: &settings})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, c.Slug, updated.Slug)

	stored := env.reload(t, c.ID)
	assert.Equal(t, models.CommunityTypeClosed, stored.Type)
	assert.True(t, stored.Settings.RequirePostApproval)

	err = env.communities.DeleteCommunity(ctx, coAdminActor, c.ID)
	assertCode(t, err, models.CodeForbidden)
	err = env.communities.DeleteCommunity(ctx, outsider, c.ID)
	assertCode(t, err, models.CodeForbidden)

	require.NoError(t, env.communities.DeleteCommunity(ctx, ownerActor, c.ID))
	_, err = env.communities.GetCommunity(ctx, ownerActor, c.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestCommunityService_ModeratorsAndLog(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	mod, _ := env.user(t, 1, models.RoleMember)
	mem, memActor := env.user(t, 1, models.RoleMember)
	c := env.community(t, owner, models.CommunityTypeOpen, openSettings())
	env.member(t, c, mod, models.MembershipRoleModerator)
	memRow := env.member(t, c, mem, models.MembershipRoleMember)

	staff, err := env.communities.ListModerators(ctx, memActor, c.ID)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	for _, m := range staff {
		assert.True(t, m.Permissions.CanModerate)
	}

	_, err = env.memberships.Promote(ctx, ownerActor, memRow.ID)
	require.NoError(t, err)

	_, err = env.communities.ListModerationActions(ctx, outsiderOf(t, env), c.ID, repository.Page{})
	assertCode(t, err, models.CodeForbidden)

	log, err := env.communities.ListModerationActions(ctx, ownerActor, c.ID, repository.Page{})
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, models.ActionMembershipPromote, log[0].Action)
	assert.Equal(t, owner.ID, log[0].ActorID)
}

func outsiderOf(t *testing.T, env *serviceEnv) models.Actor {
	t.Helper()
	_, a := env.user(t, 1, models.RoleMember)
	return a
}
