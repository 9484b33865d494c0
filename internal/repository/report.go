package repository

import (
	"context"

	"alumnihub/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportFilter narrows a report listing. An empty CommunityIDs slice with
// AllCommunities false returns nothing.
type ReportFilter struct {
	TenantID       uint
	AllTenants     bool
	CommunityIDs   []uint
	AllCommunities bool
	Status         models.ReportStatus
	EntityType     models.ReportEntityType
}

// ReportRepository persists abuse reports.
type ReportRepository interface {
	Create(ctx context.Context, r *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	Exists(ctx context.Context, reporterID uint, entityType models.ReportEntityType, entityID uint) (bool, error)
	List(ctx context.Context, f ReportFilter, page Page) ([]models.Report, error)
	UpdateStatus(ctx context.Context, r *models.Report, action *models.ModerationAction) error
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// ErrAlreadyReported is the conflict message for a repeated report.
const ErrAlreadyReported = "you have already reported this content"

func (r *reportRepository) Create(ctx context.Context, rep *models.Report) error {
	return translate(r.db.WithContext(ctx).Omit("Reporter").Create(rep).Error, "Report", rep.EntityID, ErrAlreadyReported)
}

func (r *reportRepository) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var rep models.Report
	if err := r.db.WithContext(ctx).Preload("Reporter").First(&rep, id).Error; err != nil {
		return nil, translate(err, "Report", id, "")
	}
	return &rep, nil
}

func (r *reportRepository) Exists(ctx context.Context, reporterID uint, entityType models.ReportEntityType, entityID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("reporter_id = ? AND entity_type = ? AND entity_id = ?", reporterID, entityType, entityID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *reportRepository) List(ctx context.Context, f ReportFilter, page Page) ([]models.Report, error) {
	if !f.AllCommunities && len(f.CommunityIDs) == 0 {
		return []models.Report{}, nil
	}
	q := r.db.WithContext(ctx).Preload("Reporter")
	if !f.AllTenants {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	if !f.AllCommunities {
		q = q.Where("community_id IN ?", f.CommunityIDs)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	var out []models.Report
	if err := page.apply(q.Order("created_at DESC, id DESC")).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

// UpdateStatus persists the review fields and the moderation log row together.
func (r *reportRepository) UpdateStatus(ctx context.Context, rep *models.Report, action *models.ModerationAction) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(rep).Omit(clause.Associations).
			Select("status", "reviewed_by_user_id", "reviewed_at", "review_notes", "updated_at").
			Updates(rep).Error; err != nil {
			return err
		}
		return appendAction(tx, action)
	})
	return translate(err, "Report", rep.ID, "")
}
