package repository

import (
	"context"
	"testing"
	"time"

	"alumnihub/internal/models"
	"alumnihub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRepository_DuplicateReport(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewReportRepository(db)
	ctx := context.Background()
	reporter := testutil.CreateUser(t, db, 1, models.RoleMember)

	rep := &models.Report{TenantID: 1, ReporterID: reporter.ID, EntityType: models.ReportEntityPost, EntityID: 10, CommunityID: 3, Reason: models.ReportReasonSpam, Status: models.ReportStatusPending}
	require.NoError(t, repo.Create(ctx, rep))

	exists, err := repo.Exists(ctx, reporter.ID, models.ReportEntityPost, 10)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.Exists(ctx, reporter.ID, models.ReportEntityComment, 10)
	require.NoError(t, err)
	assert.False(t, exists)

	err = repo.Create(ctx, &models.Report{TenantID: 1, ReporterID: reporter.ID, EntityType: models.ReportEntityPost, EntityID: 10, CommunityID: 3, Reason: models.ReportReasonOther, Status: models.ReportStatusPending})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Equal(t, ErrAlreadyReported, appErr.Message)
}

func TestReportRepository_ListScopes(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewReportRepository(db)
	ctx := context.Background()
	reporter := testutil.CreateUser(t, db, 1, models.RoleMember)

	for i, communityID := range []uint{3, 3, 4} {
		require.NoError(t, repo.Create(ctx, &models.Report{
			TenantID: 1, ReporterID: reporter.ID, EntityType: models.ReportEntityPost, EntityID: uint(i + 1),
			CommunityID: communityID, Reason: models.ReportReasonSpam, Status: models.ReportStatusPending,
		}))
	}

	none, err := repo.List(ctx, ReportFilter{TenantID: 1}, Page{})
	require.NoError(t, err)
	assert.Empty(t, none)

	scoped, err := repo.List(ctx, ReportFilter{TenantID: 1, CommunityIDs: []uint{3}}, Page{})
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	all, err := repo.List(ctx, ReportFilter{AllTenants: true, AllCommunities: true}, Page{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReportRepository_UpdateStatus(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewReportRepository(db)
	ctx := context.Background()
	reporter := testutil.CreateUser(t, db, 1, models.RoleMember)
	admin := testutil.CreateUser(t, db, 1, models.RoleSuperAdmin)

	rep := &models.Report{TenantID: 1, ReporterID: reporter.ID, EntityType: models.ReportEntityComment, EntityID: 5, CommunityID: 3, Reason: models.ReportReasonHarassment, Status: models.ReportStatusPending}
	require.NoError(t, repo.Create(ctx, rep))

	now := time.Now().UTC()
	rep.Status = models.ReportStatusResolved
	rep.ReviewedByUserID = &admin.ID
	rep.ReviewedAt = &now
	rep.ReviewNotes = "removed"
	require.NoError(t, repo.UpdateStatus(ctx, rep, &models.ModerationAction{
		TenantID: 1, CommunityID: 3, EntityType: models.ModerationEntityReport, EntityID: rep.ID,
		Action: models.ActionReportReview, ActorID: admin.ID,
	}))

	got, err := repo.GetByID(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, got.Status)
	require.NotNil(t, got.ReviewedByUserID)
	assert.Equal(t, admin.ID, *got.ReviewedByUserID)
	assert.Equal(t, "removed", got.ReviewNotes)
	require.NotNil(t, got.Reporter)
}
