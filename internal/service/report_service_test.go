package service

import (
	"context"
	"testing"

	"alumnihub/internal/models"
	"alumnihub/internal/notifications"
	"alumnihub/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportFixture struct {
	env       *serviceEnv
	community *models.Community
	post      *models.Post
	comment   *models.Comment

	owner, author, reporter, mod, peer models.Actor
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	env := newServiceEnv(t)
	ctx := context.Background()

	owner, ownerActor := env.user(t, 1, models.RoleMember)
	author, authorActor := env.user(t, 1, models.RoleMember)
	reporter, reporterActor := env.user(t, 1, models.RoleMember)
	mod, modActor := env.user(t, 1, models.RoleMember)
	peer, peerActor := env.user(t, 1, models.RoleMember)

	c := env.community(t, owner, models.CommunityTypeClosed, openSettings())
	env.member(t, c, author, models.MembershipRoleMember)
	env.member(t, c, reporter, models.MembershipRoleMember)
	env.member(t, c, mod, models.MembershipRoleModerator)
	env.member(t, c, peer, models.MembershipRoleMember)

	post, err := env.posts.CreatePost(ctx, authorActor, CreatePostInput{CommunityID: c.ID, Content: "buy followers"})
	require.NoError(t, err)
	cm, err := env.comments.CreateComment(ctx, authorActor, CreateCommentInput{PostID: post.ID, Content: "dm me"})
	require.NoError(t, err)

	return &reportFixture{
		env: env, community: c, post: post, comment: cm,
		owner: ownerActor, author: authorActor, reporter: reporterActor, mod: modActor, peer: peerActor,
	}
}

func TestReportService_CreateReport(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	_, outsider := f.env.user(t, 1, models.RoleMember)

	r, err := f.env.reports.CreateReport(ctx, f.reporter, CreateReportInput{
		EntityType: models.ReportEntityPost, EntityID: f.post.ID, Reason: models.ReportReasonSpam,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, r.Status)
	assert.Equal(t, f.community.ID, r.CommunityID)
	assert.Equal(t, f.community.TenantID, r.TenantID)

	_, err = f.env.reports.CreateReport(ctx, f.reporter, CreateReportInput{
		EntityType: models.ReportEntityPost, EntityID: f.post.ID, Reason: models.ReportReasonOther,
	})
	assertCode(t, err, models.CodeConflict)

	_, err = f.env.reports.CreateReport(ctx, f.reporter, CreateReportInput{
		EntityType: models.ReportEntityComment, EntityID: f.comment.ID, Reason: models.ReportReasonHarassment,
	})
	require.NoError(t, err, "a comment is a different entity than its post")

	_, err = f.env.reports.CreateReport(ctx, f.author, CreateReportInput{
		EntityType: models.ReportEntityPost, EntityID: f.post.ID, Reason: models.ReportReasonSpam,
	})
	assertCode(t, err, models.CodeValidation)

	_, err = f.env.reports.CreateReport(ctx, f.reporter, CreateReportInput{
		EntityType: "user", EntityID: 1, Reason: models.ReportReasonSpam,
	})
	assertCode(t, err, models.CodeValidation)

	_, err = f.env.reports.CreateReport(ctx, f.peer, CreateReportInput{
		EntityType: models.ReportEntityPost, EntityID: f.post.ID, Reason: "boring",
	})
	assertCode(t, err, models.CodeValidation)

	_, err = f.env.reports.CreateReport(ctx, outsider, CreateReportInput{
		EntityType: models.ReportEntityPost, EntityID: f.post.ID, Reason: models.ReportReasonSpam,
	})
	assertCode(t, err, models.CodeForbidden)

	_, err = f.env.reports.CreateReport(ctx, f.reporter, CreateReportInput{
		EntityType: models.ReportEntityPost, EntityID: 424242, Reason: models.ReportReasonSpam,
	})
	assertCode(t, err, models.CodeNotFound)
}

func TestReportService_HiddenContentIsNotFound(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	owner, ownerActor := env.user(t, 1, models.RoleMember)
	_, outsider := env.user(t, 1, models.RoleMember)
	_, foreign := env.user(t, 2, models.RoleMember)

	hidden := env.community(t, owner, models.CommunityTypeHidden, openSettings())
	post, err := env.posts.CreatePost(ctx, ownerActor, CreatePostInput{CommunityID: hidden.ID, Content: "secret"})
	require.NoError(t, err)

	for _, actor := range []models.Actor{outsider, foreign} {
		_, err = env.reports.CreateReport(ctx, actor, CreateReportInput{
			EntityType: models.ReportEntityPost, EntityID: post.ID, Reason: models.ReportReasonSpam,
		})
		assertCode(t, err, models.CodeNotFound)
	}
}

func TestReportService_ListScopes(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	_, err := f.env.reports.CreateReport(ctx, f.reporter, CreateReportInput{
		EntityType: models.ReportEntityPost, EntityID: f.post.ID, Reason: models.ReportReasonSpam,
	})
	require.NoError(t, err)

	otherOwner, otherOwnerActor := f.env.user(t, 2, models.RoleMember)
	otherAuthor, otherAuthorActor := f.env.user(t, 2, models.RoleMember)
	other := f.env.community(t, otherOwner, models.CommunityTypeOpen, openSettings())
	f.env.member(t, other, otherAuthor, models.MembershipRoleMember)
	otherPost, err := f.env.posts.CreatePost(ctx, otherAuthorActor, CreatePostInput{CommunityID: other.ID, Content: "elsewhere"})
	require.NoError(t, err)
	_, err = f.env.reports.CreateReport(ctx, otherOwnerActor, CreateReportInput{
		EntityType: models.ReportEntityPost, EntityID: otherPost.ID, Reason: models.ReportReasonMisinfo,
	})
	require.NoError(t, err)

	_, superAdmin := f.env.user(t, 1, models.RoleSuperAdmin)
	_, collegeAdmin := f.env.user(t, 1, models.RoleCollegeAdmin)

	tests := []struct {
		name  string
		actor models.Actor
		want  int
	}{
		{"super admin sees every tenant", superAdmin, 2},
		{"college admin sees own tenant", collegeAdmin, 1},
		{"moderator sees moderated communities", f.mod, 1},
		{"community creator sees own community", f.owner, 1},
		{"plain member sees nothing", f.peer, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.env.reports.ListReports(ctx, tt.actor, ListReportsInput{})
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	got, err := f.env.reports.ListReports(ctx, superAdmin, ListReportsInput{Status: models.ReportStatusResolved, Page: repository.Page{}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReportService_GetReportAccess(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	r, err := f.env.reports.CreateReport(ctx, f.reporter, CreateReportInput{
		EntityType: models.ReportEntityPost, EntityID: f.post.ID, Reason: models.ReportReasonSpam,
	})
	require.NoError(t, err)
	_, foreignAdmin := f.env.user(t, 2, models.RoleCollegeAdmin)

	for _, actor := range []models.Actor{f.reporter, f.mod, f.owner} {
		got, err := f.env.reports.GetReport(ctx, actor, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
	}

	_, err = f.env.reports.GetReport(ctx, f.peer, r.ID)
	assertCode(t, err, models.CodeForbidden)
	_, err = f.env.reports.GetReport(ctx, foreignAdmin, r.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestReportService_UpdateReportStatus(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()

	r, err := f.env.reports.CreateReport(ctx, f.reporter, CreateReportInput{
		EntityType: models.ReportEntityPost, EntityID: f.post.ID, Reason: models.ReportReasonSpam,
	})
	require.NoError(t, err)
	superAdminUser, superAdmin := f.env.user(t, 1, models.RoleSuperAdmin)
	_, collegeAdmin := f.env.user(t, 1, models.RoleCollegeAdmin)

	for _, actor := range []models.Actor{f.mod, f.owner, collegeAdmin} {
		_, err = f.env.reports.UpdateReportStatus(ctx, actor, r.ID, UpdateReportInput{Status: models.ReportStatusReviewed})
		assertCode(t, err, models.CodeForbidden)
	}

	reviewed, err := f.env.reports.UpdateReportStatus(ctx, superAdmin, r.ID, UpdateReportInput{Status: models.ReportStatusReviewed, Notes: " looking "})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusReviewed, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedByUserID)
	assert.Equal(t, superAdminUser.ID, *reviewed.ReviewedByUserID)
	assert.NotNil(t, reviewed.ReviewedAt)
	assert.Equal(t, "looking", reviewed.ReviewNotes)

	_, err = f.env.reports.UpdateReportStatus(ctx, superAdmin, r.ID, UpdateReportInput{Status: models.ReportStatusPending})
	assertCode(t, err, models.CodeValidation)

	resolved, err := f.env.reports.UpdateReportStatus(ctx, superAdmin, r.ID, UpdateReportInput{Status: models.ReportStatusResolved})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, resolved.Status)

	_, err = f.env.reports.UpdateReportStatus(ctx, superAdmin, r.ID, UpdateReportInput{Status: models.ReportStatusDismissed})
	assertCode(t, err, models.CodeValidation)

	assert.EqualValues(t, 2, f.env.countActions(t, models.ActionReportReview))
	reporterID := f.reporter.UserID
	assert.Equal(t,
		[]notifications.EventType{notifications.EventReportUpdated, notifications.EventReportUpdated},
		f.env.notifier.events(reporterID))
}
