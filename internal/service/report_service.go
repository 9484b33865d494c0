package service

import (
	"context"
	"strings"
	"time"

	"alumnihub/internal/events"
	"alumnihub/internal/models"
	"alumnihub/internal/notifications"
	"alumnihub/internal/observability"
	"alumnihub/internal/permissions"
	"alumnihub/internal/repository"
)

const maxReportDescriptionLen = 2000

// ReportService files and triages abuse reports.
type ReportService struct {
	access      communityAccess
	memberships repository.MembershipRepository
	posts       repository.PostRepository
	comments    repository.CommentRepository
	reports     repository.ReportRepository
	effects     sideEffects
	now         func() time.Time
}

type CreateReportInput struct {
	EntityType  models.ReportEntityType
	EntityID    uint
	Reason      models.ReportReason
	Description string
}

type ListReportsInput struct {
	Status     models.ReportStatus
	EntityType models.ReportEntityType
	Page       repository.Page
}

type UpdateReportInput struct {
	Status models.ReportStatus
	Notes  string
}

func NewReportService(
	communities repository.CommunityRepository,
	memberships repository.MembershipRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	reports repository.ReportRepository,
	notifier UserNotifier,
	publisher events.Publisher,
) *ReportService {
	s := &ReportService{
		memberships: memberships,
		posts:       posts,
		comments:    comments,
		reports:     reports,
		effects:     newSideEffects(notifier, publisher),
		now:         utcNow,
	}
	s.access = communityAccess{communities: communities, memberships: memberships, now: func() time.Time { return s.now() }}
	return s
}

// target resolves the reported entity to its author and community. Content
// the reporter cannot see is not found.
func (s *ReportService) target(ctx context.Context, actor models.Actor, typ models.ReportEntityType, id uint) (authorID uint, sub permissions.Subject, err error) {
	var post *models.Post
	switch typ {
	case models.ReportEntityPost:
		post, err = s.posts.GetByID(ctx, id, actor.UserID)
		if err != nil {
			return 0, sub, err
		}
		authorID = post.AuthorID
	case models.ReportEntityComment:
		c, err := s.comments.GetByID(ctx, id, actor.UserID)
		if err != nil {
			return 0, sub, err
		}
		if c.Status == models.ContentStatusDeleted {
			return 0, sub, models.NewNotFoundError("Comment", id)
		}
		post, err = s.posts.GetByID(ctx, c.PostID, actor.UserID)
		if err != nil {
			return 0, sub, err
		}
		authorID = c.AuthorID
	default:
		return 0, sub, models.NewValidationError("entity_type must be post or comment")
	}

	sub, err = s.access.viewable(ctx, actor, post.CommunityID)
	if err != nil {
		return 0, sub, err
	}
	if !postVisible(post, actor, sub) {
		return 0, sub, models.NewNotFoundError("Post", post.ID)
	}
	return authorID, sub, nil
}

// CreateReport files a report. Each user reports a given entity once.
func (s *ReportService) CreateReport(ctx context.Context, actor models.Actor, in CreateReportInput) (*models.Report, error) {
	if !in.EntityType.Valid() {
		return nil, models.NewValidationError("entity_type must be post or comment")
	}
	if !in.Reason.Valid() {
		return nil, models.NewValidationError("invalid report reason")
	}
	desc := strings.TrimSpace(in.Description)
	if len(desc) > maxReportDescriptionLen {
		return nil, models.NewValidationError("description too long (max 2000 characters)")
	}

	authorID, sub, err := s.target(ctx, actor, in.EntityType, in.EntityID)
	if err != nil {
		return nil, err
	}
	if authorID == actor.UserID {
		return nil, models.NewValidationError("you cannot report your own content")
	}
	exists, err := s.reports.Exists(ctx, actor.UserID, in.EntityType, in.EntityID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError(repository.ErrAlreadyReported)
	}

	r := &models.Report{
		TenantID:    sub.Community.TenantID,
		ReporterID:  actor.UserID,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		CommunityID: sub.Community.ID,
		Reason:      in.Reason,
		Description: desc,
		Status:      models.ReportStatusPending,
	}
	if err := s.reports.Create(ctx, r); err != nil {
		return nil, err
	}
	observability.ReportsFiled.WithLabelValues(string(r.Reason)).Inc()
	return r, nil
}

// ListReports returns the reports the actor may triage or view: every tenant
// for super admins, the whole tenant for college admins, and otherwise the
// communities the actor moderates.
func (s *ReportService) ListReports(ctx context.Context, actor models.Actor, in ListReportsInput) ([]models.Report, error) {
	f := repository.ReportFilter{
		TenantID:   actor.TenantID,
		Status:     in.Status,
		EntityType: in.EntityType,
	}
	switch {
	case actor.IsSuperAdmin():
		f.AllTenants = true
		f.AllCommunities = true
	case actor.AdministersTenant(actor.TenantID):
		f.AllCommunities = true
	default:
		ids, err := s.moderatedCommunities(ctx, actor)
		if err != nil {
			return nil, err
		}
		f.CommunityIDs = ids
	}
	return s.reports.List(ctx, f, in.Page)
}

func (s *ReportService) moderatedCommunities(ctx context.Context, actor models.Actor) ([]uint, error) {
	ms, err := s.memberships.ListByUser(ctx, actor.UserID, []models.MembershipStatus{models.MembershipStatusApproved})
	if err != nil {
		return nil, err
	}
	var ids []uint
	for _, m := range ms {
		if m.Role.IsStaff() {
			ids = append(ids, m.CommunityID)
		}
	}
	return ids, nil
}

// GetReport is visible to the reporter and to whoever may list it.
func (s *ReportService) GetReport(ctx context.Context, actor models.Actor, id uint) (*models.Report, error) {
	r, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ReporterID == actor.UserID || actor.IsSuperAdmin() {
		return r, nil
	}
	if r.TenantID != actor.TenantID {
		return nil, models.NewNotFoundError("Report", id)
	}
	if actor.AdministersTenant(r.TenantID) {
		return r, nil
	}
	sub, err := s.access.subject(ctx, actor, r.CommunityID)
	if err != nil {
		return nil, err
	}
	if !sub.CanModerate() {
		return nil, models.NewForbiddenError("you cannot view this report")
	}
	return r, nil
}

// UpdateReportStatus moves a report through triage. Only super admins may.
func (s *ReportService) UpdateReportStatus(ctx context.Context, actor models.Actor, id uint, in UpdateReportInput) (*models.Report, error) {
	if !actor.IsSuperAdmin() {
		return nil, models.NewForbiddenError("only super admins can update reports")
	}
	r, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.CanTransitionTo(in.Status) {
		return nil, models.NewValidationError("cannot move report from " + string(r.Status) + " to " + string(in.Status))
	}

	now := s.now()
	reviewer := actor.UserID
	r.Status = in.Status
	r.ReviewedByUserID = &reviewer
	r.ReviewedAt = &now
	r.ReviewNotes = strings.TrimSpace(in.Notes)

	sub := permissions.Subject{
		Actor:     actor,
		Community: &models.Community{ID: r.CommunityID, TenantID: r.TenantID},
		Now:       now,
	}
	action := newAction(sub, models.ModerationEntityReport, r.ID, models.ActionReportReview, r.ReporterID, r.ReviewNotes)
	if err := s.reports.UpdateStatus(ctx, r, action); err != nil {
		return nil, err
	}
	s.effects.publish(ctx, action)
	s.effects.notify(ctx, r.ReporterID, notifications.EventReportUpdated, map[string]any{
		"report_id": r.ID, "status": r.Status,
	})
	return r, nil
}
