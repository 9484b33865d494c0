package repository

import (
	"context"
	"time"

	"alumnihub/internal/cache"
	"alumnihub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipFilter narrows a community's member listing.
type MembershipFilter struct {
	CommunityID uint
	Statuses    []models.MembershipStatus
	Roles       []models.MembershipRole
}

// MembershipRepository persists the community membership ledger. Every write
// recomputes the community's member_count and appends the supplied
// moderation action in the same transaction.
type MembershipRepository interface {
	Get(ctx context.Context, communityID, userID uint) (*models.Membership, error)
	GetByID(ctx context.Context, id uint) (*models.Membership, error)
	Create(ctx context.Context, m *models.Membership, action *models.ModerationAction) error
	Transition(ctx context.Context, m *models.Membership, action *models.ModerationAction) error
	List(ctx context.Context, f MembershipFilter, page Page) ([]models.Membership, error)
	ListByUser(ctx context.Context, userID uint, statuses []models.MembershipStatus) ([]models.Membership, error)
	ListExpiredSuspensions(ctx context.Context, now time.Time, limit int) ([]models.Membership, error)
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

const membershipConflict = "user already has a membership in this community"

func (r *membershipRepository) Get(ctx context.Context, communityID, userID uint) (*models.Membership, error) {
	var m models.Membership
	err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&m).Error
	if err != nil {
		return nil, translate(err, "Membership", userID, "")
	}
	return &m, nil
}

func (r *membershipRepository) GetByID(ctx context.Context, id uint) (*models.Membership, error) {
	var m models.Membership
	if err := r.db.WithContext(ctx).Preload("User").First(&m, id).Error; err != nil {
		return nil, translate(err, "Membership", id, "")
	}
	return &m, nil
}

func (r *membershipRepository) Create(ctx context.Context, m *models.Membership, action *models.ModerationAction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCommunity(tx, m.CommunityID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
			return err
		}
		if action != nil {
			action.EntityID = m.ID
		}
		if err := syncMemberCount(tx, m.CommunityID); err != nil {
			return err
		}
		return appendAction(tx, action)
	})
	if err != nil {
		return translate(err, "Membership", m.UserID, membershipConflict)
	}
	cache.InvalidateCommunity(ctx, m.CommunityID)
	return nil
}

// Transition saves every column of m, so cleared suspension fields are
// written back as NULL.
func (r *membershipRepository) Transition(ctx context.Context, m *models.Membership, action *models.ModerationAction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCommunity(tx, m.CommunityID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(m).Error; err != nil {
			return err
		}
		if err := syncMemberCount(tx, m.CommunityID); err != nil {
			return err
		}
		return appendAction(tx, action)
	})
	if err != nil {
		return translate(err, "Membership", m.ID, membershipConflict)
	}
	cache.InvalidateCommunity(ctx, m.CommunityID)
	return nil
}

func (r *membershipRepository) List(ctx context.Context, f MembershipFilter, page Page) ([]models.Membership, error) {
	q := r.db.WithContext(ctx).Preload("User").Where("community_id = ?", f.CommunityID)
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if len(f.Roles) > 0 {
		q = q.Where("role IN ?", f.Roles)
	}
	var out []models.Membership
	if err := page.apply(q.Order("created_at ASC, id ASC")).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *membershipRepository) ListByUser(ctx context.Context, userID uint, statuses []models.MembershipStatus) ([]models.Membership, error) {
	q := r.db.WithContext(ctx).Preload("Community").Where("user_id = ?", userID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var out []models.Membership
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// ListExpiredSuspensions returns suspended memberships whose end date is at
// or before now, oldest first. Memberships of deleted communities are left
// out.
func (r *membershipRepository) ListExpiredSuspensions(ctx context.Context, now time.Time, limit int) ([]models.Membership, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []models.Membership
	err := r.db.WithContext(ctx).
		Joins("JOIN communities ON communities.id = community_memberships.community_id AND communities.deleted_at IS NULL").
		Where("community_memberships.status = ? AND community_memberships.suspension_end_date IS NOT NULL AND community_memberships.suspension_end_date <= ?",
			models.MembershipStatusSuspended, now).
		Order("community_memberships.suspension_end_date ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}
