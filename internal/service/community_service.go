package service

import (
	"context"
	"strings"
	"time"

	"alumnihub/internal/models"
	"alumnihub/internal/observability"
	"alumnihub/internal/permissions"
	"alumnihub/internal/repository"
	"alumnihub/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxCommunityNameLen = 120
	maxDescriptionLen   = 5000
)

type CommunityService struct {
	access      communityAccess
	communities repository.CommunityRepository
	memberships repository.MembershipRepository
	categories  repository.CategoryRepository
	now         func() time.Time
}

type CreateCommunityInput struct {
	Name        string
	Slug        string
	Description string
	Type        models.CommunityType
	CategoryID  *uint
	Settings    *models.CommunitySettings
}

type UpdateCommunityInput struct {
	Name        *string
	Description *string
	Type        *models.CommunityType
	CategoryID  *uint
	Settings    *models.CommunitySettings
}

type ListCommunitiesInput struct {
	CategoryID *uint
	Type       models.CommunityType
	Search     string
	Page       repository.Page
}

// CommunityView is a community as seen by one actor.
type CommunityView struct {
	*models.Community
	Membership  *models.Membership `json:"membership,omitempty"`
	Permissions models.Permissions `json:"permissions"`
	CanView     bool               `json:"can_view"`
}

func NewCommunityService(
	communities repository.CommunityRepository,
	memberships repository.MembershipRepository,
	categories repository.CategoryRepository,
) *CommunityService {
	s := &CommunityService{
		communities: communities,
		memberships: memberships,
		categories:  categories,
		now:         utcNow,
	}
	s.access = communityAccess{communities: communities, memberships: memberships, now: func() time.Time { return s.now() }}
	return s
}

func validateCommunityName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.NewValidationError("Community name is required")
	}
	if len(name) > maxCommunityNameLen {
		return "", models.NewValidationError("Community name too long (max 120 characters)")
	}
	return name, nil
}

// checkCategory ensures categoryID is an active community category of tenantID.
func (s *CommunityService) checkCategory(ctx context.Context, tenantID uint, categoryID *uint) error {
	if categoryID == nil {
		return nil
	}
	c, err := s.categories.GetByID(ctx, *categoryID)
	if err != nil {
		if isNotFound(err) {
			return models.NewValidationError("category not found")
		}
		return err
	}
	if c.TenantID != tenantID || c.EntityType != models.CategoryEntityCommunity || !c.IsActive {
		return models.NewValidationError("category is not an active community category")
	}
	return nil
}

// CreateCommunity creates a community owned by the actor, who becomes its
// first admin.
func (s *CommunityService) CreateCommunity(ctx context.Context, actor models.Actor, in CreateCommunityInput) (c *models.Community, err error) {
	ctx, span := observability.StartSpan(ctx, "community.create", attribute.Int64("tenant.id", int64(actor.TenantID)))
	defer func() { span.Finish(err) }()

	name, err := validateCommunityName(in.Name)
	if err != nil {
		return nil, err
	}
	if len(in.Description) > maxDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 5000 characters)")
	}
	typ := in.Type
	if typ == "" {
		typ = models.CommunityTypeOpen
	}
	if !typ.Valid() {
		return nil, models.NewValidationError("type must be open, closed or hidden")
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = validation.Slugify(name)
	}
	if err := validation.ValidateCommunitySlug(slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := s.checkCategory(ctx, actor.TenantID, in.CategoryID); err != nil {
		return nil, err
	}
	settings := models.DefaultCommunitySettings()
	if in.Settings != nil {
		settings = *in.Settings
	}

	now := s.now()
	c = &models.Community{
		TenantID:        actor.TenantID,
		Name:            name,
		Slug:            slug,
		Description:     strings.TrimSpace(in.Description),
		Type:            typ,
		CategoryID:      in.CategoryID,
		Settings:        settings,
		CreatedByUserID: actor.UserID,
	}
	owner := &models.Membership{
		UserID:   actor.UserID,
		Role:     models.MembershipRoleAdmin,
		Status:   models.MembershipStatusApproved,
		JoinedAt: &now,
	}
	if err := s.communities.Create(ctx, c, owner); err != nil {
		return nil, err
	}
	observability.MembershipTransitions.WithLabelValues("create", string(owner.Status)).Inc()
	return c, nil
}

func (s *CommunityService) view(sub permissions.Subject) *CommunityView {
	v := &CommunityView{
		Community:   sub.Community,
		Permissions: sub.Permissions(),
		CanView:     sub.CanView(),
	}
	if m := sub.Membership; m != nil {
		if permissions.SuspensionLapsed(m, sub.Now) {
			m.Status = models.MembershipStatusApproved
			m.ClearSuspension()
		}
		m.Permissions = permissions.Effective(m, sub.Community.Settings, sub.Now)
		v.Membership = m
	}
	return v
}

// GetCommunity returns the community with the actor's membership and
// permissions. Hidden communities are not found for outsiders; closed ones
// are described but their content stays locked.
func (s *CommunityService) GetCommunity(ctx context.Context, actor models.Actor, id uint) (*CommunityView, error) {
	sub, err := s.access.subject(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if sub.Community.Type == models.CommunityTypeHidden && !sub.CanView() {
		return nil, models.NewNotFoundError("Community", id)
	}
	return s.view(sub), nil
}

func (s *CommunityService) GetCommunityBySlug(ctx context.Context, actor models.Actor, slug string) (*CommunityView, error) {
	c, err := s.communities.GetBySlug(ctx, actor.TenantID, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	return s.GetCommunity(ctx, actor, c.ID)
}

// ListCommunities lists the actor's tenant. Hidden communities appear only
// to their members, their creator and tenant admins.
func (s *CommunityService) ListCommunities(ctx context.Context, actor models.Actor, in ListCommunitiesInput) ([]models.Community, error) {
	if in.Type != "" && !in.Type.Valid() {
		return nil, models.NewValidationError("type must be open, closed or hidden")
	}
	return s.communities.List(ctx, repository.CommunityFilter{
		TenantID:      actor.TenantID,
		ViewerID:      actor.UserID,
		IncludeHidden: actor.AdministersTenant(actor.TenantID),
		CategoryID:    in.CategoryID,
		Type:          in.Type,
		Search:        in.Search,
	}, in.Page)
}

// UpdateCommunity changes name, description, type, category or settings.
// The slug is stable.
func (s *CommunityService) UpdateCommunity(ctx context.Context, actor models.Actor, id uint, in UpdateCommunityInput) (*models.Community, error) {
	sub, err := s.access.subject(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !sub.CanAdminister() {
		if sub.Community.Type == models.CommunityTypeHidden && !sub.CanView() {
			return nil, models.NewNotFoundError("Community", id)
		}
		return nil, models.NewForbiddenError("only community admins can change the community")
	}
	c := sub.Community
	if in.Name != nil {
		name, err := validateCommunityName(*in.Name)
		if err != nil {
			return nil, err
		}
		c.Name = name
	}
	if in.Description != nil {
		if len(*in.Description) > maxDescriptionLen {
			return nil, models.NewValidationError("Description too long (max 5000 characters)")
		}
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, models.NewValidationError("type must be open, closed or hidden")
		}
		c.Type = *in.Type
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(ctx, c.TenantID, in.CategoryID); err != nil {
			return nil, err
		}
		c.CategoryID = in.CategoryID
	}
	if in.Settings != nil {
		c.Settings = *in.Settings
	}
	if err := s.communities.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCommunity soft deletes the community. Only the creator and tenant
// administrators may.
func (s *CommunityService) DeleteCommunity(ctx context.Context, actor models.Actor, id uint) error {
	sub, err := s.access.subject(ctx, actor, id)
	if err != nil {
		return err
	}
	if !sub.Bypass() {
		if sub.Community.Type == models.CommunityTypeHidden && !sub.CanView() {
			return models.NewNotFoundError("Community", id)
		}
		return models.NewForbiddenError("only the creator or an administrator can delete this community")
	}
	return s.communities.Delete(ctx, id)
}

// ListModerators derives the staff list from the ledger.
func (s *CommunityService) ListModerators(ctx context.Context, actor models.Actor, id uint) ([]models.Membership, error) {
	sub, err := s.access.viewable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	out, err := s.memberships.List(ctx, repository.MembershipFilter{
		CommunityID: id,
		Statuses:    []models.MembershipStatus{models.MembershipStatusApproved},
		Roles:       []models.MembershipRole{models.MembershipRoleAdmin, models.MembershipRoleModerator},
	}, repository.Page{Limit: 100})
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Permissions = permissions.Effective(&out[i], sub.Community.Settings, sub.Now)
	}
	return out, nil
}

// ListModerationActions returns the community's audit log, newest first.
func (s *CommunityService) ListModerationActions(ctx context.Context, actor models.Actor, id uint, page repository.Page) ([]models.ModerationAction, error) {
	sub, err := s.access.subject(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !sub.CanModerate() {
		return nil, models.NewForbiddenError("only moderators can view the moderation log")
	}
	return s.communities.ListModerationActions(ctx, id, page)
}
