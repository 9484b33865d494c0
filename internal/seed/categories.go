package seed

import (
	"fmt"

	"alumnihub/internal/models"
	"alumnihub/internal/validation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type categoryDef struct {
	entity models.CategoryEntityType
	names  []string
}

// defaultTaxonomy is the category set every tenant starts with.
var defaultTaxonomy = []categoryDef{
	{models.CategoryEntityCommunity, []string{"Graduating Class", "Regional Chapter", "Department", "Special Interest", "Sports & Clubs"}},
	{models.CategoryEntityEvent, []string{"Reunion", "Networking", "Webinar", "Homecoming", "Fundraiser"}},
	{models.CategoryEntityJobPost, []string{"Full Time", "Part Time", "Contract", "Remote"}},
	{models.CategoryEntityInternship, []string{"Summer", "Semester", "Research"}},
	{models.CategoryEntityNews, []string{"Campus News", "Alumni Spotlight", "Research"}},
	{models.CategoryEntityGallery, []string{"Events", "Campus", "Throwback"}},
	{models.CategoryEntityDonation, []string{"Scholarships", "Infrastructure", "Endowment"}},
	{models.CategoryEntityMentorship, []string{"Career", "Entrepreneurship", "Higher Studies"}},
	{models.CategoryEntityDiscussion, []string{"General", "Career Advice", "Off Topic"}},
	{models.CategoryEntityResource, []string{"Guides", "Templates", "Recordings"}},
	{models.CategoryEntityAchievement, []string{"Awards", "Publications", "Startups"}},
	{models.CategoryEntityAlumniStory, []string{"Career Journey", "Life After Campus"}},
	{models.CategoryEntityAnnouncement, []string{"Administrative", "Urgent"}},
}

// Categories upserts the default taxonomy for tenantID. Existing rows keep
// their name, order and active flag, so running it twice is a no-op.
func Categories(db *gorm.DB, tenantID uint) error {
	var rows []models.Category
	for _, def := range defaultTaxonomy {
		for i, name := range def.names {
			rows = append(rows, models.Category{
				TenantID:   tenantID,
				EntityType: def.entity,
				Name:       name,
				Slug:       validation.Slugify(name),
				Order:      i,
				IsActive:   true,
			})
		}
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "entity_type"}, {Name: "slug"}},
		DoNothing: true,
	}).CreateInBatches(&rows, 50).Error
	if err != nil {
		return fmt.Errorf("seed categories for tenant %d: %w", tenantID, err)
	}
	return nil
}

// DefaultCategoryCount is the number of categories Categories creates for a
// fresh tenant.
func DefaultCategoryCount() int {
	n := 0
	for _, def := range defaultTaxonomy {
		n += len(def.names)
	}
	return n
}
