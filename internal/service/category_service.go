package service

import (
	"context"
	"fmt"
	"strings"

	"alumnihub/internal/cache"
	"alumnihub/internal/models"
	"alumnihub/internal/repository"
	"alumnihub/internal/validation"
)

const maxCategoryNameLen = 100

// CategoryService manages the per-tenant taxonomy.
type CategoryService struct {
	categories repository.CategoryRepository
}

type CreateCategoryInput struct {
	// TenantID lets super admins manage another tenant. Zero means the
	// actor's own tenant.
	TenantID    uint
	EntityType  models.CategoryEntityType
	Name        string
	Description string
	Order       int
	IsActive    *bool
}

type UpdateCategoryInput struct {
	Name        *string
	Description *string
	Order       *int
	IsActive    *bool
}

type ListCategoriesInput struct {
	EntityType      models.CategoryEntityType
	IncludeInactive bool
}

func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

func categoryName(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", models.NewValidationError("Category name is required")
	}
	if len(name) > maxCategoryNameLen {
		return "", "", models.NewValidationError("Category name too long (max 100 characters)")
	}
	slug := validation.Slugify(name)
	if err := validation.ValidateSlug(slug); err != nil {
		return "", "", models.NewValidationError(err.Error())
	}
	return name, slug, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, actor models.Actor, in CreateCategoryInput) (*models.Category, error) {
	tenantID := actor.TenantID
	if in.TenantID != 0 {
		tenantID = in.TenantID
	}
	if !actor.AdministersTenant(tenantID) {
		return nil, models.NewForbiddenError("only tenant administrators can manage categories")
	}
	if !in.EntityType.Valid() {
		return nil, models.NewValidationError("invalid entity_type")
	}
	name, slug, err := categoryName(in.Name)
	if err != nil {
		return nil, err
	}
	c := &models.Category{
		TenantID:    tenantID,
		EntityType:  in.EntityType,
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		Order:       in.Order,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	cache.InvalidateCategories(ctx, c.TenantID, string(c.EntityType))
	return c, nil
}

// ListCategories returns the tenant's categories ordered for display.
// Inactive entries are only listed to administrators. Active listings per
// entity type are cached.
func (s *CategoryService) ListCategories(ctx context.Context, actor models.Actor, in ListCategoriesInput) ([]models.Category, error) {
	if in.EntityType != "" && !in.EntityType.Valid() {
		return nil, models.NewValidationError("invalid entity_type")
	}
	f := repository.CategoryFilter{
		TenantID:        actor.TenantID,
		EntityType:      in.EntityType,
		IncludeInactive: in.IncludeInactive && actor.AdministersTenant(actor.TenantID),
	}
	if f.IncludeInactive || f.EntityType == "" {
		return s.categories.List(ctx, f)
	}

	var out []models.Category
	err := cache.Aside(ctx, cache.CategoryListKey(f.TenantID, string(f.EntityType)), &out, cache.CategoryTTL, func() error {
		var err error
		out, err = s.categories.List(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, actor models.Actor, id uint) (*models.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	admin := actor.AdministersTenant(c.TenantID)
	if c.TenantID != actor.TenantID && !admin {
		return nil, models.NewNotFoundError("Category", id)
	}
	if !c.IsActive && !admin {
		return nil, models.NewNotFoundError("Category", id)
	}
	return c, nil
}

func (s *CategoryService) manageable(ctx context.Context, actor models.Actor, id uint) (*models.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.TenantID != actor.TenantID && !actor.IsSuperAdmin() {
		return nil, models.NewNotFoundError("Category", id)
	}
	if !actor.AdministersTenant(c.TenantID) {
		return nil, models.NewForbiddenError("only tenant administrators can manage categories")
	}
	return c, nil
}

// UpdateCategory edits a category. Renaming regenerates the slug.
func (s *CategoryService) UpdateCategory(ctx context.Context, actor models.Actor, id uint, in UpdateCategoryInput) (*models.Category, error) {
	c, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name, slug, err := categoryName(*in.Name)
		if err != nil {
			return nil, err
		}
		c.Name, c.Slug = name, slug
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.Order != nil {
		c.Order = *in.Order
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, err
	}
	cache.InvalidateCategories(ctx, c.TenantID, string(c.EntityType))
	return c, nil
}

// DeleteCategory refuses while any record still references the category.
func (s *CategoryService) DeleteCategory(ctx context.Context, actor models.Actor, id uint) error {
	c, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	n, err := s.categories.UsageCount(ctx, c.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return models.NewConflictError(fmt.Sprintf("category is in use by %d records", n))
	}
	if err := s.categories.Delete(ctx, c.ID); err != nil {
		return err
	}
	cache.InvalidateCategories(ctx, c.TenantID, string(c.EntityType))
	return nil
}
