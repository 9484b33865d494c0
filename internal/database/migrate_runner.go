package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"alumnihub/internal/middleware"

	"gorm.io/gorm"
)

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

// MigrationStore records which embedded migrations a database has run.
type MigrationStore interface {
	Applied(ctx context.Context) ([]AppliedMigration, error)
	Apply(ctx context.Context, m Migration) error
	Revert(ctx context.Context, m Migration) error
}

type migrationStore struct {
	db *gorm.DB
}

func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

const ensureSchemaMigrationsSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

func (s *migrationStore) Applied(ctx context.Context) ([]AppliedMigration, error) {
	var out []AppliedMigration
	err := s.db.WithContext(ctx).Order("version ASC").Find(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isMissingTableError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	return out, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// Apply runs the up script and records it in one transaction.
func (s *migrationStore) Apply(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply %s: %w", m.String(), err)
		}
		return tx.Create(&AppliedMigration{Version: m.Version, Name: m.Name, Checksum: m.Checksum()}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "migration applied", slog.String("migration", m.String()))
	return nil
}

// Revert runs the down script and drops the record in one transaction.
func (s *migrationStore) Revert(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", m.String(), err)
		}
		return tx.Where("version = ?", m.Version).Delete(&AppliedMigration{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "migration reverted", slog.String("migration", m.String()))
	return nil
}

// RunMigrations applies every pending embedded migration in version order.
// It stops before touching anything when the database has run a version
// this binary does not know, or one whose script has since been edited.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(ensureSchemaMigrationsSQL).Error; err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	store := NewMigrationStore(db)
	applied, err := store.Applied(ctx)
	if err != nil {
		return err
	}
	if err := validateApplied(applied, migrations); err != nil {
		return err
	}

	for _, m := range pendingMigrations(applied, migrations) {
		if err := store.Apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func pendingMigrations(applied []AppliedMigration, registered []Migration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}
	var out []Migration
	for _, m := range registered {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// driftedMigrations returns applied versions whose recorded checksum no
// longer matches the embedded script.
func driftedMigrations(applied []AppliedMigration, registered []Migration) []int {
	sums := make(map[int]string, len(registered))
	for _, m := range registered {
		sums[m.Version] = m.Checksum()
	}
	var out []int
	for _, a := range applied {
		if sum, ok := sums[a.Version]; ok && sum != a.Checksum {
			out = append(out, a.Version)
		}
	}
	return out
}

func validateApplied(applied []AppliedMigration, registered []Migration) error {
	known := make(map[int]bool, len(registered))
	for _, m := range registered {
		known[m.Version] = true
	}
	var unknown []string
	for _, a := range applied {
		if !known[a.Version] {
			unknown = append(unknown, fmt.Sprintf("%06d", a.Version))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("schema_migrations has versions this build does not know: %s (reset the development database)",
			strings.Join(unknown, ", "))
	}

	if drifted := driftedMigrations(applied, registered); len(drifted) > 0 {
		parts := make([]string, len(drifted))
		for i, v := range drifted {
			parts[i] = fmt.Sprintf("%06d", v)
		}
		return fmt.Errorf("applied migrations were edited after they ran: %s; add a new migration instead",
			strings.Join(parts, ", "))
	}
	return nil
}

// RollbackMigration reverts one applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	store := NewMigrationStore(db)
	applied, err := store.Applied(ctx)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(applied, func(a AppliedMigration) bool { return a.Version == version }) {
		return fmt.Errorf("migration %d has not been applied", version)
	}
	return store.Revert(ctx, *m)
}

// RollbackLatest reverts the highest applied version, if any, and returns it.
func RollbackLatest(ctx context.Context, db *gorm.DB) (int, error) {
	applied, err := NewMigrationStore(db).Applied(ctx)
	if err != nil {
		return 0, err
	}
	if len(applied) == 0 {
		return 0, nil
	}
	latest := applied[len(applied)-1].Version
	return latest, RollbackMigration(ctx, db, latest)
}
