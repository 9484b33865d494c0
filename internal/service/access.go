// Package service implements the business rules of the API on top of the
// repositories.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"alumnihub/internal/events"
	"alumnihub/internal/middleware"
	"alumnihub/internal/models"
	"alumnihub/internal/notifications"
	"alumnihub/internal/observability"
	"alumnihub/internal/permissions"
	"alumnihub/internal/repository"
)

// UserNotifier delivers realtime events to one user.
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID uint, ev notifications.Event) error
}

type noopNotifier struct{}

func (noopNotifier) NotifyUser(context.Context, uint, notifications.Event) error { return nil }

func utcNow() time.Time { return time.Now().UTC() }

// communityAccess resolves the actor's standing in a community.
type communityAccess struct {
	communities repository.CommunityRepository
	memberships repository.MembershipRepository
	now         func() time.Time
}

// subject loads the community and the actor's membership. Communities of
// another tenant are reported as not found.
func (a *communityAccess) subject(ctx context.Context, actor models.Actor, communityID uint) (permissions.Subject, error) {
	community, err := a.communities.GetByID(ctx, communityID)
	if err != nil {
		return permissions.Subject{}, err
	}
	s := permissions.Subject{Actor: actor, Community: community, Now: a.now()}
	if !s.InTenant() {
		return permissions.Subject{}, models.NewNotFoundError("Community", communityID)
	}
	m, err := a.memberships.Get(ctx, communityID, actor.UserID)
	switch {
	case err == nil:
		s.Membership = m
	case !isNotFound(err):
		return permissions.Subject{}, err
	}
	return s, nil
}

// viewable loads the subject and fails unless the actor may read the
// community. Hidden communities stay invisible to outsiders.
func (a *communityAccess) viewable(ctx context.Context, actor models.Actor, communityID uint) (permissions.Subject, error) {
	s, err := a.subject(ctx, actor, communityID)
	if err != nil {
		return s, err
	}
	if !s.CanView() {
		return s, viewDenied(s)
	}
	return s, nil
}

func viewDenied(s permissions.Subject) error {
	if s.Community.Type == models.CommunityTypeHidden {
		return models.NewNotFoundError("Community", s.Community.ID)
	}
	return models.NewForbiddenError("join this community to view its content")
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeNotFound
}

// sideEffects fans committed moderation actions out to the event stream and
// users. Failures are logged and never fail the request.
type sideEffects struct {
	notifier UserNotifier
	events   events.Publisher
}

func newSideEffects(n UserNotifier, p events.Publisher) sideEffects {
	if n == nil {
		n = noopNotifier{}
	}
	if p == nil {
		p = events.Noop{}
	}
	return sideEffects{notifier: n, events: p}
}

func (e sideEffects) publish(ctx context.Context, action *models.ModerationAction) {
	if action == nil {
		return
	}
	observability.ModerationActions.WithLabelValues(string(action.EntityType), string(action.Action)).Inc()
	if err := e.events.PublishModeration(ctx, action); err != nil {
		observability.EventPublishFailures.WithLabelValues("kafka").Inc()
		middleware.Logger.WarnContext(ctx, "failed to publish moderation event",
			slog.String("action", string(action.Action)),
			slog.Uint64("entity_id", uint64(action.EntityID)),
			slog.String("error", err.Error()))
	}
}

func (e sideEffects) notify(ctx context.Context, userID uint, typ notifications.EventType, payload any) {
	if userID == 0 {
		return
	}
	if err := e.notifier.NotifyUser(ctx, userID, notifications.Event{Type: typ, Payload: payload}); err != nil {
		observability.EventPublishFailures.WithLabelValues("redis").Inc()
		middleware.Logger.WarnContext(ctx, "failed to notify user",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("event", string(typ)),
			slog.String("error", err.Error()))
	}
}

func newAction(s permissions.Subject, entity models.ModerationEntityType, entityID uint, verb models.ModerationActionType, target uint, reason string) *models.ModerationAction {
	a := &models.ModerationAction{
		TenantID:    s.Community.TenantID,
		CommunityID: s.Community.ID,
		EntityType:  entity,
		EntityID:    entityID,
		Action:      verb,
		ActorID:     s.Actor.UserID,
		Reason:      reason,
		CreatedAt:   s.Now,
	}
	if target != 0 {
		a.TargetUserID = &target
	}
	return a
}
