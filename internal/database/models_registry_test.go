package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestPersistentModels_AutoMigrateCreatesAllTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(PersistentModels()...))

	for _, table := range []string{
		"users", "categories", "communities", "community_memberships", "posts",
		"poll_options", "poll_votes", "comments", "likes", "comment_likes",
		"reports", "moderation_actions", "events", "job_posts",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasColumn("communities", "setting_allow_member_posts"))
	assert.True(t, db.Migrator().HasColumn("community_memberships", "can_post"))
	assert.False(t, db.Migrator().HasColumn("posts", "likes_count"), "computed columns are not migrated")
}

func TestEmbeddedMigrationsRegistered(t *testing.T) {
	migs := GetMigrations()
	require.NotEmpty(t, migs)
	for i := 1; i < len(migs); i++ {
		assert.Less(t, migs[i-1].Version, migs[i].Version)
	}
	first := GetMigrationByVersion(1)
	require.NotNil(t, first)
	assert.Equal(t, "000001_core_schema", first.String())
	assert.Contains(t, first.UpScript, "community_memberships")
	assert.Contains(t, first.DownScript, "DROP TABLE IF EXISTS users")
}
