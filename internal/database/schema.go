package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"alumnihub/internal/config"
	"alumnihub/internal/middleware"
	"alumnihub/internal/models"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan is what ApplySchema will do for one configuration.
type schemaPlan struct {
	Mode    string
	RunSQL  bool
	RunAuto bool
}

// planSchema resolves DB_SCHEMA_MODE against the environment. Hybrid runs the
// SQL migrations everywhere and AutoMigrate only outside production-like
// environments, where column drift is tolerable.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	plan := schemaPlan{Mode: mode}

	switch mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeAuto:
		if cfg.IsProductionLike() && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.RunAuto = true
	case SchemaModeHybrid:
		plan.RunSQL = true
		plan.RunAuto = !cfg.IsProductionLike()
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return plan, nil
}

// ledgerIndex is a unique index that the conflict handling relies on: the
// repositories turn a duplicate-key error on it into a CONFLICT response.
type ledgerIndex struct {
	Model  any
	Name   string
	Guards string
}

var ledgerIndexes = []ledgerIndex{
	{&models.Membership{}, "idx_membership_community_user", "one membership per community and user"},
	{&models.Like{}, "idx_like_user_post", "one like per post and user"},
	{&models.CommentLike{}, "idx_comment_like_user_comment", "one like per comment and user"},
	{&models.PollVote{}, "idx_poll_vote_post_user", "one poll vote per post and user"},
	{&models.Report{}, "idx_report_reporter_entity", "one report per reporter and entity"},
	{&models.Category{}, "idx_category_tenant_type_slug", "category slugs per tenant and entity type"},
	{&models.Community{}, "idx_community_tenant_slug", "community slugs per tenant"},
}

// MissingLedgerIndexes lists the conflict-guarding unique indexes absent
// from db. Without them duplicate joins, likes and votes would be stored
// twice instead of failing.
func MissingLedgerIndexes(db *gorm.DB) []string {
	var missing []string
	m := db.Migrator()
	for _, idx := range ledgerIndexes {
		if !m.HasIndex(idx.Model, idx.Name) {
			missing = append(missing, fmt.Sprintf("%s (%s)", idx.Name, idx.Guards))
		}
	}
	return missing
}

// ApplySchema brings the schema up to date according to DB_SCHEMA_MODE and
// then refuses to continue if any conflict-guarding index is missing.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if plan.RunAuto {
		if plan.Mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true with DB_SCHEMA_MODE=auto; review schema diffs before deploying")
		}
		middleware.Logger.InfoContext(ctx, "running gorm automigrate", slog.String("mode", plan.Mode), slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	if missing := MissingLedgerIndexes(db.WithContext(ctx)); len(missing) > 0 {
		return fmt.Errorf("schema is missing unique indexes: %s", strings.Join(missing, "; "))
	}
	return nil
}

// SchemaStatus describes the schema as `migrate status` reports it.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	Applied            []AppliedMigration
	Pending            []Migration
	Drifted            []int
	MissingIndexes     []string
}

// Healthy reports whether nothing is pending, edited after apply, or
// missing an index.
func (s *SchemaStatus) Healthy() bool {
	return len(s.Pending) == 0 && len(s.Drifted) == 0 && len(s.MissingIndexes) == 0
}

// GetSchemaStatus inspects the schema without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.Mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.RunSQL,
		WillRunAutoMigrate: plan.RunAuto,
		MissingIndexes:     MissingLedgerIndexes(db.WithContext(ctx)),
	}
	if !plan.RunSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).Applied(ctx)
	if err != nil {
		return nil, err
	}
	status.Applied = applied
	status.Pending = pendingMigrations(applied, GetMigrations())
	status.Drifted = driftedMigrations(applied, GetMigrations())
	return status, nil
}
