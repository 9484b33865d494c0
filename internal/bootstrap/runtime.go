// Package bootstrap wires process-level dependencies shared by the server and
// the operator commands.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"alumnihub/internal/cache"
	"alumnihub/internal/config"
	"alumnihub/internal/database"
	"alumnihub/internal/middleware"
	"alumnihub/internal/models"
	"alumnihub/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedCategories installs the default taxonomy for DefaultTenantID.
	SeedCategories bool
}

// DefaultTenantID is the tenant the development admin and built-in
// categories belong to.
const DefaultTenantID uint = 1

// InitRuntime connects to the database and Redis and prepares development
// fixtures. The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("bootstrap development admin: %w", err)
	}

	if opts.SeedCategories {
		if err := seed.Categories(db, DefaultTenantID); err != nil {
			return nil, nil, fmt.Errorf("seed default categories: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevAdmin creates or promotes a super admin in development when
// DEV_BOOTSTRAP_ADMIN is set. It is a no-op everywhere else.
func EnsureDevAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.DevAdminEmail))
	if email == "" {
		email = "admin@alumnihub.local"
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("email = ?", email).First(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			admin = models.User{
				TenantID: DefaultTenantID,
				Username: "alumnihub_admin",
				Email:    email,
				Password: string(hashed),
				FullName: "Platform Admin",
				Role:     models.RoleSuperAdmin,
				IsActive: true,
			}
			return tx.Create(&admin).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&admin).Updates(map[string]any{
				"role":      models.RoleSuperAdmin,
				"is_active": true,
				"password":  string(hashed),
			}).Error
		}
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development admin ensured", slog.String("email", email))
	return nil
}
