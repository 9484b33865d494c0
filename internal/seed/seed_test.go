package seed

import (
	"testing"

	"alumnihub/internal/models"
	"alumnihub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategories_Idempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	require.NoError(t, Categories(db, 1))
	require.NoError(t, db.Model(&models.Category{}).
		Where("tenant_id = ? AND slug = ?", 1, "reunion").
		Update("name", "Class Reunion").Error)
	require.NoError(t, Categories(db, 1))
	require.NoError(t, Categories(db, 2))

	var perTenant int64
	require.NoError(t, db.Model(&models.Category{}).Where("tenant_id = ?", 1).Count(&perTenant).Error)
	assert.EqualValues(t, DefaultCategoryCount(), perTenant)

	var renamed models.Category
	require.NoError(t, db.Where("tenant_id = ? AND slug = ?", 1, "reunion").First(&renamed).Error)
	assert.Equal(t, "Class Reunion", renamed.Name)

	var sports models.Category
	require.NoError(t, db.Where("tenant_id = ? AND entity_type = ? AND slug = ?", 2, models.CategoryEntityCommunity, "sports-clubs").First(&sports).Error)
	assert.True(t, sports.IsActive)
}

func TestSeeder_RunKeepsCountersConsistent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	opts := Options{
		Tenants:              2,
		UsersPerTenant:       8,
		CommunitiesPerTenant: 3,
		PostsPerCommunity:    4,
		SkipBcrypt:           true,
		MaxDays:              30,
		RandomSeed:           42,
	}

	sum, err := NewSeeder(db, opts).Run()
	require.NoError(t, err)
	assert.Equal(t, 16, sum.Users)
	assert.Equal(t, 6, sum.Communities)
	assert.Equal(t, 24, sum.Posts)

	var communities []models.Community
	require.NoError(t, db.Find(&communities).Error)
	require.Len(t, communities, 6)
	for _, c := range communities {
		var members, posts int64
		require.NoError(t, db.Model(&models.Membership{}).
			Where("community_id = ? AND status IN ?", c.ID, []models.MembershipStatus{models.MembershipStatusApproved, models.MembershipStatusSuspended}).
			Count(&members).Error)
		require.NoError(t, db.Model(&models.Post{}).
			Where("community_id = ? AND status = ?", c.ID, models.ContentStatusApproved).
			Count(&posts).Error)
		assert.EqualValues(t, members, c.MemberCount, "community %d", c.ID)
		assert.EqualValues(t, posts, c.PostCount, "community %d", c.ID)
		assert.GreaterOrEqual(t, c.MemberCount, 1)
		assert.NotNil(t, c.CategoryID)
	}

	var admins int64
	require.NoError(t, db.Model(&models.User{}).Where("role = ?", models.RoleCollegeAdmin).Count(&admins).Error)
	assert.EqualValues(t, 2, admins)
}

func TestFactory_DryRunWritesNothing(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	opts := Options{Tenants: 1, UsersPerTenant: 4, CommunitiesPerTenant: 2, PostsPerCommunity: 3, SkipBcrypt: true, DryRun: true, RandomSeed: 7}

	sum, err := NewSeeder(db, opts).Run()
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Users)
	assert.Equal(t, 6, sum.Posts)

	for _, model := range []any{&models.User{}, &models.Community{}, &models.Post{}, &models.Category{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}
}

func TestFactory_BuildPost(t *testing.T) {
	f := NewFactory(nil, Options{RandomSeed: 3}, "hash")
	author := &models.User{ID: 1, TenantID: 1}
	c := &models.Community{ID: 2, TenantID: 1}

	poll := f.BuildPost(c, author, models.PostTypePoll, models.ContentStatusApproved)
	require.GreaterOrEqual(t, len(poll.PollOptions), 2)
	seen := map[string]bool{}
	for i, opt := range poll.PollOptions {
		assert.Equal(t, i, opt.Position)
		assert.False(t, seen[opt.Text])
		seen[opt.Text] = true
	}

	link := f.BuildPost(c, author, models.PostTypeLink, models.ContentStatusApproved)
	assert.Contains(t, link.LinkURL, "https://")

	u := f.BuildUser(5, models.RoleMember)
	assert.Equal(t, uint(5), u.TenantID)
	assert.Equal(t, "hash", u.Password)
	assert.Contains(t, u.Email, "@t5.alumni.example")
}
