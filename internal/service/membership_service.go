package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"alumnihub/internal/events"
	"alumnihub/internal/middleware"
	"alumnihub/internal/models"
	"alumnihub/internal/notifications"
	"alumnihub/internal/observability"
	"alumnihub/internal/permissions"
	"alumnihub/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxSuspensionReasonLen = 1000
	expiryBatchSize        = 100
)

// MembershipService runs the community membership state machine.
type MembershipService struct {
	access      communityAccess
	memberships repository.MembershipRepository
	users       repository.UserRepository
	effects     sideEffects
	now         func() time.Time
}

// SuspendInput carries a suspension request. EndDate is optional; when set
// it must be in the future.
type SuspendInput struct {
	Reason  string
	EndDate *time.Time
}

// PermissionsInput sets permission overrides. Nil fields are left unchanged;
// Reset clears every override first.
type PermissionsInput struct {
	CanPost    *bool
	CanComment *bool
	CanInvite  *bool
	Reset      bool
}

// ListMembersInput filters a member listing.
type ListMembersInput struct {
	Status models.MembershipStatus
	Role   models.MembershipRole
	Page   repository.Page
}

func NewMembershipService(
	communities repository.CommunityRepository,
	memberships repository.MembershipRepository,
	users repository.UserRepository,
	notifier UserNotifier,
	publisher events.Publisher,
) *MembershipService {
	s := &MembershipService{
		memberships: memberships,
		users:       users,
		effects:     newSideEffects(notifier, publisher),
		now:         utcNow,
	}
	s.access = communityAccess{communities: communities, memberships: memberships, now: s.clock}
	return s
}

func (s *MembershipService) clock() time.Time { return s.now() }

func (s *MembershipService) decorate(m *models.Membership, settings models.CommunitySettings, now time.Time) {
	if permissions.SuspensionLapsed(m, now) {
		m.Status = models.MembershipStatusApproved
		m.ClearSuspension()
	}
	m.Permissions = permissions.Effective(m, settings, now)
}

// target loads a membership by id together with the actor's standing in
// its community.
func (s *MembershipService) target(ctx context.Context, actor models.Actor, membershipID uint) (*models.Membership, permissions.Subject, error) {
	m, err := s.memberships.GetByID(ctx, membershipID)
	if err != nil {
		return nil, permissions.Subject{}, err
	}
	sub, err := s.access.subject(ctx, actor, m.CommunityID)
	if err != nil {
		return nil, permissions.Subject{}, err
	}
	return m, sub, nil
}

func rejectSelf(actor models.Actor, m *models.Membership, verb string) error {
	if m.UserID == actor.UserID {
		return models.NewValidationError("you cannot " + verb + " your own membership")
	}
	return nil
}

func (s *MembershipService) transition(ctx context.Context, sub permissions.Subject, m *models.Membership, action *models.ModerationAction, ev notifications.EventType) error {
	if err := s.memberships.Transition(ctx, m, action); err != nil {
		return err
	}
	observability.MembershipTransitions.WithLabelValues(transitionLabel(action), string(m.Status)).Inc()
	s.effects.publish(ctx, action)
	if ev != "" {
		s.effects.notify(ctx, m.UserID, ev, map[string]any{
			"community_id":   sub.Community.ID,
			"community_name": sub.Community.Name,
			"membership_id":  m.ID,
			"status":         m.Status,
			"role":           m.Role,
		})
	}
	s.decorate(m, sub.Community.Settings, sub.Now)
	return nil
}

func transitionLabel(a *models.ModerationAction) string {
	if a == nil {
		return "self"
	}
	return string(a.Action)
}

// Join requests membership. Open communities admit immediately, closed ones
// queue the request and hidden ones are invite only. A left or rejected
// membership is reactivated in place.
func (s *MembershipService) Join(ctx context.Context, actor models.Actor, communityID uint) (m *models.Membership, err error) {
	ctx, span := observability.StartSpan(ctx, "membership.join", attribute.Int64("community.id", int64(communityID)))
	defer func() { span.Finish(err) }()

	sub, err := s.access.subject(ctx, actor, communityID)
	if err != nil {
		return nil, err
	}
	if sub.Community.Type == models.CommunityTypeHidden && !sub.Bypass() {
		return nil, models.NewForbiddenError("this community is invite only")
	}
	if sub.Membership != nil && sub.Membership.Status.Active() {
		return nil, models.NewConflictError("you already have a membership in this community")
	}

	status := models.MembershipStatusApproved
	if sub.Community.Type == models.CommunityTypeClosed && !sub.Bypass() {
		status = models.MembershipStatusPending
	}

	m = sub.Membership
	if m == nil {
		m = &models.Membership{CommunityID: communityID, UserID: actor.UserID}
	}
	resetForRejoin(m)
	m.Status = status
	if status == models.MembershipStatusApproved {
		now := sub.Now
		m.JoinedAt = &now
	}

	if m.ID == 0 {
		err = s.memberships.Create(ctx, m, nil)
	} else {
		err = s.memberships.Transition(ctx, m, nil)
	}
	if err != nil {
		return nil, err
	}
	observability.MembershipTransitions.WithLabelValues("join", string(m.Status)).Inc()
	s.decorate(m, sub.Community.Settings, sub.Now)
	return m, nil
}

// resetForRejoin wipes everything a previous membership accumulated.
func resetForRejoin(m *models.Membership) {
	m.Role = models.MembershipRoleMember
	m.Overrides = models.PermissionOverrides{}
	m.InvitedByUserID = nil
	m.ApprovedByUserID = nil
	m.RemovedByUserID = nil
	m.JoinedAt = nil
	m.LeftAt = nil
	m.ClearSuspension()
}

// Invite adds userID as an approved member. The actor needs invite rights.
func (s *MembershipService) Invite(ctx context.Context, actor models.Actor, communityID, userID uint) (*models.Membership, error) {
	sub, err := s.access.subject(ctx, actor, communityID)
	if err != nil {
		return nil, err
	}
	if !sub.CanInvite() {
		return nil, models.NewForbiddenError("you do not have permission to invite members")
	}
	if userID == actor.UserID {
		return nil, models.NewValidationError("you cannot invite yourself")
	}
	invitee, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if invitee.TenantID != sub.Community.TenantID {
		return nil, models.NewNotFoundError("User", userID)
	}
	if !invitee.IsActive {
		return nil, models.NewValidationError("cannot invite a deactivated account")
	}

	existing, err := s.memberships.Get(ctx, communityID, userID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil && existing.Status.Active() {
		return nil, models.NewConflictError("user is already a member of this community")
	}

	m := existing
	if m == nil {
		m = &models.Membership{CommunityID: communityID, UserID: userID}
	}
	resetForRejoin(m)
	now := sub.Now
	inviter := actor.UserID
	m.Status = models.MembershipStatusApproved
	m.InvitedByUserID = &inviter
	m.ApprovedByUserID = &inviter
	m.JoinedAt = &now

	action := newAction(sub, models.ModerationEntityMembership, m.ID, models.ActionMembershipInvite, userID, "")
	if m.ID == 0 {
		if err := s.memberships.Create(ctx, m, action); err != nil {
			return nil, err
		}
		observability.MembershipTransitions.WithLabelValues(string(action.Action), string(m.Status)).Inc()
		s.effects.publish(ctx, action)
		s.effects.notify(ctx, userID, notifications.EventMembershipInvited, map[string]any{
			"community_id": communityID, "community_name": sub.Community.Name, "membership_id": m.ID,
		})
		s.decorate(m, sub.Community.Settings, sub.Now)
		return m, nil
	}
	if err := s.transition(ctx, sub, m, action, notifications.EventMembershipInvited); err != nil {
		return nil, err
	}
	return m, nil
}

// Leave ends the actor's own membership. A pending request is withdrawn the
// same way. The creator cannot leave.
func (s *MembershipService) Leave(ctx context.Context, actor models.Actor, communityID uint) error {
	sub, err := s.access.subject(ctx, actor, communityID)
	if err != nil {
		return err
	}
	if sub.Community.IsCreator(actor.UserID) {
		return models.NewValidationError("the community creator cannot leave the community")
	}
	m := sub.Membership
	if m == nil || !m.Status.Active() {
		return models.NewNotFoundError("Membership", communityID)
	}
	now := sub.Now
	m.Status = models.MembershipStatusLeft
	m.LeftAt = &now
	m.ClearSuspension()
	if err := s.memberships.Transition(ctx, m, nil); err != nil {
		return err
	}
	observability.MembershipTransitions.WithLabelValues("leave", string(m.Status)).Inc()
	return nil
}

// Approve admits a pending request. Approving an approved membership is a
// no-op that keeps the original join date.
func (s *MembershipService) Approve(ctx context.Context, actor models.Actor, membershipID uint) (*models.Membership, error) {
	m, sub, err := s.target(ctx, actor, membershipID)
	if err != nil {
		return nil, err
	}
	if !sub.CanModerate() {
		return nil, models.NewForbiddenError("only moderators can approve memberships")
	}
	switch permissions.EffectiveStatus(m, sub.Now) {
	case models.MembershipStatusApproved:
		s.decorate(m, sub.Community.Settings, sub.Now)
		return m, nil
	case models.MembershipStatusPending:
	default:
		return nil, models.NewValidationError("only pending memberships can be approved")
	}

	approver := actor.UserID
	m.Status = models.MembershipStatusApproved
	m.ApprovedByUserID = &approver
	if m.JoinedAt == nil {
		now := sub.Now
		m.JoinedAt = &now
	}
	action := newAction(sub, models.ModerationEntityMembership, m.ID, models.ActionMembershipApprove, m.UserID, "")
	if err := s.transition(ctx, sub, m, action, notifications.EventMembershipApproved); err != nil {
		return nil, err
	}
	return m, nil
}

// Reject declines a pending request.
func (s *MembershipService) Reject(ctx context.Context, actor models.Actor, membershipID uint, reason string) (*models.Membership, error) {
	m, sub, err := s.target(ctx, actor, membershipID)
	if err != nil {
		return nil, err
	}
	if !sub.CanModerate() {
		return nil, models.NewForbiddenError("only moderators can reject memberships")
	}
	if m.Status != models.MembershipStatusPending {
		return nil, models.NewValidationError("only pending memberships can be rejected")
	}
	m.Status = models.MembershipStatusRejected
	action := newAction(sub, models.ModerationEntityMembership, m.ID, models.ActionMembershipReject, m.UserID, strings.TrimSpace(reason))
	if err := s.transition(ctx, sub, m, action, notifications.EventMembershipRejected); err != nil {
		return nil, err
	}
	return m, nil
}

// Suspend blocks an approved member from participating.
func (s *MembershipService) Suspend(ctx context.Context, actor models.Actor, membershipID uint, in SuspendInput) (m *models.Membership, err error) {
	ctx, span := observability.StartSpan(ctx, "membership.suspend", attribute.Int64("membership.id", int64(membershipID)))
	defer func() { span.Finish(err) }()

	m, sub, err := s.target(ctx, actor, membershipID)
	if err != nil {
		return nil, err
	}
	if err := rejectSelf(actor, m, "suspend"); err != nil {
		return nil, err
	}
	if err := s.guardStaffTarget(sub, m, "suspend"); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, models.NewValidationError("a suspension reason is required")
	}
	if len(reason) > maxSuspensionReasonLen {
		return nil, models.NewValidationError("suspension reason is too long (max 1000 characters)")
	}
	if in.EndDate != nil && !in.EndDate.After(sub.Now) {
		return nil, models.NewValidationError("suspension end date must be in the future")
	}
	if permissions.EffectiveStatus(m, sub.Now) != models.MembershipStatusApproved {
		return nil, models.NewValidationError("only approved members can be suspended")
	}

	now := sub.Now
	suspender := actor.UserID
	m.Status = models.MembershipStatusSuspended
	m.SuspendedByUserID = &suspender
	m.SuspensionReason = reason
	m.SuspendedAt = &now
	m.SuspensionEndDate = nil
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		m.SuspensionEndDate = &end
	}
	action := newAction(sub, models.ModerationEntityMembership, m.ID, models.ActionMembershipSuspend, m.UserID, reason)
	if err := s.memberships.Transition(ctx, m, action); err != nil {
		return nil, err
	}
	observability.MembershipTransitions.WithLabelValues(string(action.Action), string(m.Status)).Inc()
	s.effects.publish(ctx, action)
	s.effects.notify(ctx, m.UserID, notifications.EventMembershipSuspended, map[string]any{
		"community_id": sub.Community.ID, "community_name": sub.Community.Name,
		"reason": reason, "suspension_end_date": m.SuspensionEndDate,
	})
	m.Permissions = permissions.Effective(m, sub.Community.Settings, sub.Now)
	return m, nil
}

// Unsuspend reinstates a suspended member.
func (s *MembershipService) Unsuspend(ctx context.Context, actor models.Actor, membershipID uint) (*models.Membership, error) {
	m, sub, err := s.target(ctx, actor, membershipID)
	if err != nil {
		return nil, err
	}
	if !sub.CanModerate() {
		return nil, models.NewForbiddenError("only moderators can lift suspensions")
	}
	if m.Status != models.MembershipStatusSuspended {
		return nil, models.NewValidationError("membership is not suspended")
	}
	m.Status = models.MembershipStatusApproved
	m.ClearSuspension()
	action := newAction(sub, models.ModerationEntityMembership, m.ID, models.ActionMembershipUnsuspend, m.UserID, "")
	if err := s.transition(ctx, sub, m, action, notifications.EventMembershipReinstated); err != nil {
		return nil, err
	}
	return m, nil
}

// Promote makes an approved member a moderator.
func (s *MembershipService) Promote(ctx context.Context, actor models.Actor, membershipID uint) (*models.Membership, error) {
	m, sub, err := s.target(ctx, actor, membershipID)
	if err != nil {
		return nil, err
	}
	if !sub.CanAdminister() {
		return nil, models.NewForbiddenError("only community admins can promote members")
	}
	if permissions.EffectiveStatus(m, sub.Now) != models.MembershipStatusApproved {
		return nil, models.NewValidationError("only approved members can be promoted")
	}
	if m.Role != models.MembershipRoleMember {
		return nil, models.NewValidationError("member is already a moderator or admin")
	}
	m.Role = models.MembershipRoleModerator
	action := newAction(sub, models.ModerationEntityMembership, m.ID, models.ActionMembershipPromote, m.UserID, "")
	if err := s.transition(ctx, sub, m, action, notifications.EventMembershipRoleChange); err != nil {
		return nil, err
	}
	return m, nil
}

// Demote returns a moderator to plain membership. Admin memberships cannot
// be demoted.
func (s *MembershipService) Demote(ctx context.Context, actor models.Actor, membershipID uint) (*models.Membership, error) {
	m, sub, err := s.target(ctx, actor, membershipID)
	if err != nil {
		return nil, err
	}
	if err := rejectSelf(actor, m, "demote"); err != nil {
		return nil, err
	}
	if !sub.CanAdminister() {
		return nil, models.NewForbiddenError("only community admins can demote moderators")
	}
	switch m.Role {
	case models.MembershipRoleAdmin:
		return nil, models.NewValidationError("admin memberships cannot be demoted")
	case models.MembershipRoleMember:
		return nil, models.NewValidationError("member is not a moderator")
	}
	m.Role = models.MembershipRoleMember
	action := newAction(sub, models.ModerationEntityMembership, m.ID, models.ActionMembershipDemote, m.UserID, "")
	if err := s.transition(ctx, sub, m, action, notifications.EventMembershipRoleChange); err != nil {
		return nil, err
	}
	return m, nil
}

// Remove expels a member. The membership is kept as left so the history
// survives.
func (s *MembershipService) Remove(ctx context.Context, actor models.Actor, membershipID uint, reason string) (*models.Membership, error) {
	m, sub, err := s.target(ctx, actor, membershipID)
	if err != nil {
		return nil, err
	}
	if err := rejectSelf(actor, m, "remove"); err != nil {
		return nil, err
	}
	if err := s.guardStaffTarget(sub, m, "remove"); err != nil {
		return nil, err
	}
	if m.Status != models.MembershipStatusApproved && m.Status != models.MembershipStatusSuspended {
		return nil, models.NewValidationError("only approved or suspended members can be removed")
	}

	now := sub.Now
	remover := actor.UserID
	m.Status = models.MembershipStatusLeft
	m.LeftAt = &now
	m.RemovedByUserID = &remover
	m.ClearSuspension()
	action := newAction(sub, models.ModerationEntityMembership, m.ID, models.ActionMembershipRemove, m.UserID, strings.TrimSpace(reason))
	if err := s.transition(ctx, sub, m, action, notifications.EventMembershipRemoved); err != nil {
		return nil, err
	}
	return m, nil
}

// guardStaffTarget applies the rules shared by suspend and remove: the actor
// must moderate, the creator is untouchable and only admins act on admins.
func (s *MembershipService) guardStaffTarget(sub permissions.Subject, m *models.Membership, verb string) error {
	if !sub.CanModerate() {
		return models.NewForbiddenError("only moderators can " + verb + " members")
	}
	if sub.Community.IsCreator(m.UserID) {
		return models.NewForbiddenError("the community creator cannot be " + verb + "d")
	}
	if m.Role == models.MembershipRoleAdmin && !sub.CanAdminister() {
		return models.NewForbiddenError("moderators cannot " + verb + " an admin")
	}
	return nil
}

// UpdateModeratorPermissions stores explicit grants or revocations. They
// survive later role changes.
func (s *MembershipService) UpdateModeratorPermissions(ctx context.Context, actor models.Actor, membershipID uint, in PermissionsInput) (*models.Membership, error) {
	m, sub, err := s.target(ctx, actor, membershipID)
	if err != nil {
		return nil, err
	}
	if !sub.CanAdminister() {
		return nil, models.NewForbiddenError("only community admins can change permissions")
	}
	if !m.Status.Active() {
		return nil, models.NewValidationError("membership is no longer active")
	}
	if in.Reset {
		m.Overrides = models.PermissionOverrides{}
	}
	if in.CanPost != nil {
		v := *in.CanPost
		m.Overrides.CanPost = &v
	}
	if in.CanComment != nil {
		v := *in.CanComment
		m.Overrides.CanComment = &v
	}
	if in.CanInvite != nil {
		v := *in.CanInvite
		m.Overrides.CanInvite = &v
	}
	action := newAction(sub, models.ModerationEntityMembership, m.ID, models.ActionMembershipPermissions, m.UserID, "")
	if err := s.transition(ctx, sub, m, action, ""); err != nil {
		return nil, err
	}
	return m, nil
}

// ListMembers lists a community's ledger. Only moderators see non-approved
// rows.
func (s *MembershipService) ListMembers(ctx context.Context, actor models.Actor, communityID uint, in ListMembersInput) ([]models.Membership, error) {
	sub, err := s.access.viewable(ctx, actor, communityID)
	if err != nil {
		return nil, err
	}
	f := repository.MembershipFilter{CommunityID: communityID}
	switch {
	case in.Status != "" && sub.CanModerate():
		f.Statuses = []models.MembershipStatus{in.Status}
	case in.Status != "" && in.Status != models.MembershipStatusApproved:
		return nil, models.NewForbiddenError("only moderators can list non-approved memberships")
	default:
		f.Statuses = []models.MembershipStatus{models.MembershipStatusApproved}
	}
	if in.Role != "" {
		f.Roles = []models.MembershipRole{in.Role}
	}
	out, err := s.memberships.List(ctx, f, in.Page)
	if err != nil {
		return nil, err
	}
	for i := range out {
		s.decorate(&out[i], sub.Community.Settings, sub.Now)
	}
	return out, nil
}

// ListPending is the moderation queue of join requests.
func (s *MembershipService) ListPending(ctx context.Context, actor models.Actor, communityID uint, page repository.Page) ([]models.Membership, error) {
	sub, err := s.access.subject(ctx, actor, communityID)
	if err != nil {
		return nil, err
	}
	if !sub.CanModerate() {
		return nil, models.NewForbiddenError("only moderators can view pending requests")
	}
	out, err := s.memberships.List(ctx, repository.MembershipFilter{
		CommunityID: communityID,
		Statuses:    []models.MembershipStatus{models.MembershipStatusPending},
	}, page)
	if err != nil {
		return nil, err
	}
	for i := range out {
		s.decorate(&out[i], sub.Community.Settings, sub.Now)
	}
	return out, nil
}

// ListMyMemberships lists the actor's memberships, active ones by default.
func (s *MembershipService) ListMyMemberships(ctx context.Context, actor models.Actor, statuses []models.MembershipStatus) ([]models.Membership, error) {
	if len(statuses) == 0 {
		statuses = []models.MembershipStatus{
			models.MembershipStatusPending, models.MembershipStatusApproved, models.MembershipStatusSuspended,
		}
	}
	out, err := s.memberships.ListByUser(ctx, actor.UserID, statuses)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range out {
		var settings models.CommunitySettings
		if out[i].Community != nil {
			settings = out[i].Community.Settings
		}
		s.decorate(&out[i], settings, now)
	}
	return out, nil
}

// ExpireSuspensions persists every suspension whose end date has passed and
// returns how many were lifted. Reads already treat them as lapsed; this
// makes the ledger agree.
func (s *MembershipService) ExpireSuspensions(ctx context.Context) (int, error) {
	lifted := 0
	for {
		now := s.now()
		batch, err := s.memberships.ListExpiredSuspensions(ctx, now, expiryBatchSize)
		if err != nil {
			return lifted, err
		}
		progressed := 0
		for i := range batch {
			m := &batch[i]
			community, err := s.access.communities.GetByID(ctx, m.CommunityID)
			if isNotFound(err) {
				middleware.Logger.WarnContext(ctx, "skipping suspension of missing community",
					slog.Uint64("membership_id", uint64(m.ID)),
					slog.Uint64("community_id", uint64(m.CommunityID)))
				continue
			}
			if err != nil {
				return lifted, err
			}
			sub := permissions.Subject{Actor: models.Actor{TenantID: community.TenantID}, Community: community, Now: now}
			m.Status = models.MembershipStatusApproved
			m.ClearSuspension()
			action := newAction(sub, models.ModerationEntityMembership, m.ID, models.ActionMembershipExpire, m.UserID, "suspension end date reached")
			if err := s.transition(ctx, sub, m, action, notifications.EventMembershipReinstated); err != nil {
				return lifted, err
			}
			observability.SuspensionsExpired.Inc()
			lifted++
			progressed++
		}
		if len(batch) < expiryBatchSize || progressed == 0 {
			return lifted, nil
		}
	}
}
