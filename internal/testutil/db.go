// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"alumnihub/internal/database"
	"alumnihub/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB returns an isolated in-memory database with every persistent
// model migrated. The pool is pinned to one connection so transactions and
// plain reads see the same memory database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:alumnihub_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// CreateUser inserts a user with fake identity fields.
func CreateUser(t *testing.T, db *gorm.DB, tenantID uint, role models.GlobalRole) *models.User {
	t.Helper()
	u := &models.User{
		TenantID: tenantID,
		Username: fmt.Sprintf("%s_%d", gofakeit.Username(), dbSeq.Add(1)),
		Email:    fmt.Sprintf("%d.%s", dbSeq.Add(1), gofakeit.Email()),
		Password: "x",
		FullName: gofakeit.Name(),
		Role:     role,
		IsActive: true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreateCommunity inserts a community owned by creator with an approved
// admin membership for the creator.
func CreateCommunity(t *testing.T, db *gorm.DB, creator *models.User, typ models.CommunityType, settings models.CommunitySettings) *models.Community {
	t.Helper()
	c := &models.Community{
		TenantID:        creator.TenantID,
		Name:            gofakeit.Company(),
		Slug:            fmt.Sprintf("community-%d", dbSeq.Add(1)),
		Type:            typ,
		Settings:        settings,
		CreatedByUserID: creator.ID,
		MemberCount:     1,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create community: %v", err)
	}
	AddMember(t, db, c, creator, models.MembershipRoleAdmin, models.MembershipStatusApproved)
	return c
}

// AddMember inserts a membership row directly.
func AddMember(t *testing.T, db *gorm.DB, c *models.Community, u *models.User, role models.MembershipRole, status models.MembershipStatus) *models.Membership {
	t.Helper()
	m := &models.Membership{
		CommunityID: c.ID,
		UserID:      u.ID,
		Role:        role,
		Status:      status,
	}
	if status == models.MembershipStatusApproved {
		now := c.CreatedAt
		m.JoinedAt = &now
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create membership: %v", err)
	}
	return m
}
