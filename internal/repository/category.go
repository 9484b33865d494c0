package repository

import (
	"context"

	"alumnihub/internal/models"

	"gorm.io/gorm"
)

// CategoryFilter narrows a category listing.
type CategoryFilter struct {
	TenantID        uint
	EntityType      models.CategoryEntityType
	IncludeInactive bool
}

// CategoryRepository persists the per-tenant taxonomy.
type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	List(ctx context.Context, f CategoryFilter) ([]models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id uint) error
	UsageCount(ctx context.Context, id uint) (int64, error)
}

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

const categoryConflict = "a category with this slug already exists for this entity type"

func (r *categoryRepository) Create(ctx context.Context, c *models.Category) error {
	return translate(r.db.WithContext(ctx).Create(c).Error, "Category", c.Slug, categoryConflict)
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err, "Category", id, "")
	}
	return &c, nil
}

func (r *categoryRepository) List(ctx context.Context, f CategoryFilter) ([]models.Category, error) {
	q := r.db.WithContext(ctx).Where("tenant_id = ?", f.TenantID)
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	var out []models.Category
	if err := q.Order("sort_order ASC, name ASC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *categoryRepository) Update(ctx context.Context, c *models.Category) error {
	return translate(r.db.WithContext(ctx).Save(c).Error, "Category", c.ID, categoryConflict)
}

func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Category", id)
	}
	return nil
}

// UsageCount counts events, job posts and live communities that reference
// the category.
func (r *categoryRepository) UsageCount(ctx context.Context, id uint) (int64, error) {
	db := r.db.WithContext(ctx)
	var total int64
	for _, model := range []any{&models.Event{}, &models.JobPost{}, &models.Community{}} {
		var n int64
		if err := db.Model(model).Where("category_id = ?", id).Count(&n).Error; err != nil {
			return 0, models.NewInternalError(err)
		}
		total += n
	}
	return total, nil
}
