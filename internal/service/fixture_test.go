package service

import (
	"context"
	"sync"
	"testing"

	"alumnihub/internal/models"
	"alumnihub/internal/notifications"
	"alumnihub/internal/repository"
	"alumnihub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent map[uint][]notifications.EventType
}

func (n *captureNotifier) NotifyUser(_ context.Context, userID uint, ev notifications.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[uint][]notifications.EventType{}
	}
	n.sent[userID] = append(n.sent[userID], ev.Type)
	return nil
}

func (n *captureNotifier) events(userID uint) []notifications.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifications.EventType(nil), n.sent[userID]...)
}

type capturePublisher struct {
	mu      sync.Mutex
	actions []models.ModerationActionType
}

func (p *capturePublisher) PublishModeration(_ context.Context, a *models.ModerationAction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, a.Action)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) published() []models.ModerationActionType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ModerationActionType(nil), p.actions...)
}

// serviceEnv wires every service against one in-memory database.
type serviceEnv struct {
	db        *gorm.DB
	notifier  *captureNotifier
	publisher *capturePublisher

	memberships *MembershipService
	posts       *PostService
	comments    *CommentService
	reports     *ReportService
	communities *CommunityService
	categories  *CategoryService
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)

	communityRepo := repository.NewCommunityRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	userRepo := repository.NewUserRepository(db)

	n := &captureNotifier{}
	p := &capturePublisher{}
	return &serviceEnv{
		db:          db,
		notifier:    n,
		publisher:   p,
		memberships: NewMembershipService(communityRepo, membershipRepo, userRepo, n, p),
		posts:       NewPostService(communityRepo, membershipRepo, postRepo, n, p),
		comments:    NewCommentService(communityRepo, membershipRepo, postRepo, commentRepo, n, p),
		reports:     NewReportService(communityRepo, membershipRepo, postRepo, commentRepo, reportRepo, n, p),
		communities: NewCommunityService(communityRepo, membershipRepo, categoryRepo),
		categories:  NewCategoryService(categoryRepo),
	}
}

func (e *serviceEnv) user(t *testing.T, tenantID uint, role models.GlobalRole) (*models.User, models.Actor) {
	t.Helper()
	u := testutil.CreateUser(t, e.db, tenantID, role)
	return u, models.ActorFromUser(u)
}

func (e *serviceEnv) community(t *testing.T, creator *models.User, typ models.CommunityType, settings models.CommunitySettings) *models.Community {
	t.Helper()
	return testutil.CreateCommunity(t, e.db, creator, typ, settings)
}

func (e *serviceEnv) member(t *testing.T, c *models.Community, u *models.User, role models.MembershipRole) *models.Membership {
	t.Helper()
	return testutil.AddMember(t, e.db, c, u, role, models.MembershipStatusApproved)
}

func (e *serviceEnv) reload(t *testing.T, id uint) *models.Community {
	t.Helper()
	var c models.Community
	require.NoError(t, e.db.First(&c, id).Error)
	return &c
}

func (e *serviceEnv) membershipRow(t *testing.T, communityID, userID uint) *models.Membership {
	t.Helper()
	var m models.Membership
	require.NoError(t, e.db.Where("community_id = ? AND user_id = ?", communityID, userID).First(&m).Error)
	return &m
}

func (e *serviceEnv) countActions(t *testing.T, action models.ModerationActionType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.ModerationAction{}).Where("action = ?", action).Count(&n).Error)
	return n
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func openSettings() models.CommunitySettings {
	return models.DefaultCommunitySettings()
}
