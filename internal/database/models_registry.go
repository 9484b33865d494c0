package database

import "alumnihub/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// The embedded SQL migrations must stay in step with this list.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Category{},
		&models.Community{},
		&models.Membership{},
		&models.Post{},
		&models.PollOption{},
		&models.PollVote{},
		&models.Comment{},
		&models.Like{},
		&models.CommentLike{},
		&models.Report{},
		&models.ModerationAction{},
		&models.Event{},
		&models.JobPost{},
	}
}
