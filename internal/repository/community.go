package repository

import (
	"context"
	"strings"

	"alumnihub/internal/cache"
	"alumnihub/internal/models"

	"gorm.io/gorm"
)

// CommunityFilter narrows a community listing. Hidden communities are only
// returned to their members and creators unless IncludeHidden is set.
type CommunityFilter struct {
	TenantID      uint
	ViewerID      uint
	IncludeHidden bool
	CategoryID    *uint
	Type          models.CommunityType
	Search        string
}

// CommunityRepository persists communities and their moderation history.
type CommunityRepository interface {
	Create(ctx context.Context, c *models.Community, owner *models.Membership) error
	GetByID(ctx context.Context, id uint) (*models.Community, error)
	GetBySlug(ctx context.Context, tenantID uint, slug string) (*models.Community, error)
	List(ctx context.Context, f CommunityFilter, page Page) ([]models.Community, error)
	Update(ctx context.Context, c *models.Community) error
	Delete(ctx context.Context, id uint) error
	ListModerationActions(ctx context.Context, communityID uint, page Page) ([]models.ModerationAction, error)
}

type communityRepository struct {
	db *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

const communityConflict = "a community with this slug already exists"

// Create inserts the community and its creator's admin membership together.
func (r *communityRepository) Create(ctx context.Context, c *models.Community, owner *models.Membership) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("CreatedByUser").Create(c).Error; err != nil {
			return err
		}
		owner.CommunityID = c.ID
		if err := tx.Omit("Community", "User").Create(owner).Error; err != nil {
			return err
		}
		if err := syncMemberCount(tx, c.ID); err != nil {
			return err
		}
		return tx.First(c, c.ID).Error
	})
	return translate(err, "Community", c.Slug, communityConflict)
}

func (r *communityRepository) GetByID(ctx context.Context, id uint) (*models.Community, error) {
	var c models.Community
	err := cache.Aside(ctx, cache.CommunityKey(id), &c, cache.CommunityTTL, func() error {
		return translate(r.db.WithContext(ctx).First(&c, id).Error, "Community", id, "")
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *communityRepository) GetBySlug(ctx context.Context, tenantID uint, slug string) (*models.Community, error) {
	var c models.Community
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND slug = ?", tenantID, slug).First(&c).Error
	if err != nil {
		return nil, translate(err, "Community", slug, "")
	}
	return &c, nil
}

func (r *communityRepository) List(ctx context.Context, f CommunityFilter, page Page) ([]models.Community, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", f.TenantID)
	if !f.IncludeHidden {
		q = q.Where(
			"type <> ? OR created_by_user_id = ? OR id IN (?)",
			models.CommunityTypeHidden, f.ViewerID,
			r.db.Model(&models.Membership{}).Select("community_id").
				Where("user_id = ? AND status IN ?", f.ViewerID,
					[]models.MembershipStatus{models.MembershipStatusApproved, models.MembershipStatusSuspended}),
		)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var out []models.Community
	if err := page.apply(q.Order("member_count DESC, id ASC")).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *communityRepository) Update(ctx context.Context, c *models.Community) error {
	err := r.db.WithContext(ctx).Model(c).
		Select("name", "description", "type", "category_id",
			"setting_allow_member_posts", "setting_require_post_approval", "setting_allow_member_invites").
		Updates(c).Error
	if err != nil {
		return translate(err, "Community", c.ID, communityConflict)
	}
	cache.InvalidateCommunity(ctx, c.ID)
	return nil
}

func (r *communityRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Community{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Community", id)
	}
	cache.InvalidateCommunity(ctx, id)
	return nil
}

func (r *communityRepository) ListModerationActions(ctx context.Context, communityID uint, page Page) ([]models.ModerationAction, error) {
	var out []models.ModerationAction
	err := page.apply(r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at DESC, id DESC")).
		Find(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}
