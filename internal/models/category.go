package models

import "time"

// CategoryEntityType names the kind of record a category classifies.
type CategoryEntityType string

const (
	CategoryEntityCommunity    CategoryEntityType = "community"
	CategoryEntityEvent        CategoryEntityType = "event"
	CategoryEntityJobPost      CategoryEntityType = "job_post"
	CategoryEntityNews         CategoryEntityType = "news"
	CategoryEntityGallery      CategoryEntityType = "gallery"
	CategoryEntityDonation     CategoryEntityType = "donation"
	CategoryEntityMentorship   CategoryEntityType = "mentorship"
	CategoryEntityDiscussion   CategoryEntityType = "discussion"
	CategoryEntityResource     CategoryEntityType = "resource"
	CategoryEntityAchievement  CategoryEntityType = "achievement"
	CategoryEntityInternship   CategoryEntityType = "internship"
	CategoryEntityAlumniStory  CategoryEntityType = "alumni_story"
	CategoryEntityAnnouncement CategoryEntityType = "announcement"
)

// CategoryEntityTypes lists every classifiable entity type.
var CategoryEntityTypes = []CategoryEntityType{
	CategoryEntityCommunity, CategoryEntityEvent, CategoryEntityJobPost, CategoryEntityNews,
	CategoryEntityGallery, CategoryEntityDonation, CategoryEntityMentorship, CategoryEntityDiscussion,
	CategoryEntityResource, CategoryEntityAchievement, CategoryEntityInternship,
	CategoryEntityAlumniStory, CategoryEntityAnnouncement,
}

// Valid reports whether t is a known entity type.
func (t CategoryEntityType) Valid() bool {
	for _, known := range CategoryEntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Category is a tenant-scoped taxonomy entry. Slug is unique per
// (tenant, entity type).
type Category struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	TenantID    uint               `gorm:"not null;uniqueIndex:idx_category_tenant_type_slug" json:"tenant_id"`
	EntityType  CategoryEntityType `gorm:"type:varchar(30);not null;uniqueIndex:idx_category_tenant_type_slug" json:"entity_type"`
	Name        string             `gorm:"size:100;not null" json:"name"`
	Slug        string             `gorm:"size:120;not null;uniqueIndex:idx_category_tenant_type_slug" json:"slug"`
	Description string             `gorm:"type:text" json:"description"`
	Order       int                `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsActive    bool               `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Event is a tenant event. Only the fields needed to classify it are modeled.
type Event struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TenantID   uint      `gorm:"not null;index" json:"tenant_id"`
	CategoryID *uint     `gorm:"index" json:"category_id,omitempty"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// JobPost is a tenant job listing. Only the fields needed to classify it are modeled.
type JobPost struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TenantID   uint      `gorm:"not null;index" json:"tenant_id"`
	CategoryID *uint     `gorm:"index" json:"category_id,omitempty"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Company    string    `gorm:"size:120" json:"company"`
	CreatedAt  time.Time `json:"created_at"`
}
