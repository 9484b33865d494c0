// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"alumnihub/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	p = p.normalize()
	return db.Limit(p.Limit).Offset(p.Offset)
}

// isUniqueViolation recognizes duplicate-key errors from PostgreSQL, from
// gorm's translated error, and from SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps driver errors onto the application error taxonomy.
func translate(err error, resource string, id any, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	if isUniqueViolation(err) {
		return models.NewConflictError(conflictMsg)
	}
	return models.NewInternalError(err)
}

// appendAction writes a moderation log row inside tx. A nil action is skipped.
func appendAction(tx *gorm.DB, action *models.ModerationAction) error {
	if action == nil {
		return nil
	}
	return tx.Create(action).Error
}

// lockCommunity takes the community row lock so concurrent counter
// recomputations for the same community serialize.
func lockCommunity(tx *gorm.DB, communityID uint) error {
	res := tx.Model(&models.Community{}).
		Where("id = ?", communityID).
		UpdateColumn("updated_at", gorm.Expr("updated_at"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Community", communityID)
	}
	return nil
}

// syncMemberCount recomputes member_count from the ledger. Suspended members
// still count.
func syncMemberCount(tx *gorm.DB, communityID uint) error {
	var n int64
	if err := tx.Model(&models.Membership{}).
		Where("community_id = ? AND status IN ?", communityID,
			[]models.MembershipStatus{models.MembershipStatusApproved, models.MembershipStatusSuspended}).
		Count(&n).Error; err != nil {
		return err
	}
	return tx.Model(&models.Community{}).Where("id = ?", communityID).UpdateColumn("member_count", n).Error
}

// syncPostCount recomputes post_count from approved, undeleted posts.
func syncPostCount(tx *gorm.DB, communityID uint) error {
	var n int64
	if err := tx.Model(&models.Post{}).
		Where("community_id = ? AND status = ?", communityID, models.ContentStatusApproved).
		Count(&n).Error; err != nil {
		return err
	}
	return tx.Model(&models.Community{}).Where("id = ?", communityID).UpdateColumn("post_count", n).Error
}
