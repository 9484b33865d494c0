// Command migrate manages the AlumniHub schema.
//
//	migrate up [-dry-run]     apply pending SQL migrations
//	migrate auto              run GORM AutoMigrate regardless of DB_SCHEMA_MODE
//	migrate status            list applied, pending and edited migrations
//	migrate verify            exit non-zero unless the schema is complete
//	migrate down [version]    revert one migration, the latest by default
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"alumnihub/internal/config"
	"alumnihub/internal/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type command func(ctx context.Context, cfg *config.Config, db *gorm.DB, args []string) error

var commands = map[string]command{
	"up":     up,
	"auto":   auto,
	"status": status,
	"verify": verify,
	"down":   down,
}

var errUnhealthy = errors.New("schema is not up to date")

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|auto|status|verify|down> [args]")
	}
	flag.Parse()
	_ = godotenv.Load()

	name := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	cmd, ok := commands[name]
	if !ok {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := cmd(context.Background(), cfg, db, flag.Args()[1:]); err != nil {
		log.Fatalf("migrate %s: %v", name, err)
	}
}

func up(ctx context.Context, cfg *config.Config, db *gorm.DB, args []string) error {
	fs := flag.NewFlagSet("up", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "list pending migrations without applying them")
	_ = fs.Parse(args)

	if *dryRun {
		st, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return err
		}
		if len(st.Pending) == 0 {
			log.Println("nothing to apply")
		}
		for _, m := range st.Pending {
			log.Printf("would apply %s", m.String())
		}
		return nil
	}

	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}
	if missing := database.MissingLedgerIndexes(db); len(missing) > 0 {
		return fmt.Errorf("migrations ran but indexes are missing: %s", strings.Join(missing, "; "))
	}
	log.Println("sql migrations applied")
	return nil
}

func auto(ctx context.Context, cfg *config.Config, db *gorm.DB, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	log.Println("automigrate finished")
	return nil
}

func status(ctx context.Context, cfg *config.Config, db *gorm.DB, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	printStatus(st)
	return nil
}

func verify(ctx context.Context, cfg *config.Config, db *gorm.DB, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	printStatus(st)
	if !st.Healthy() {
		return errUnhealthy
	}
	log.Println("schema ok")
	return nil
}

func down(ctx context.Context, _ *config.Config, db *gorm.DB, args []string) error {
	if len(args) == 0 {
		v, err := database.RollbackLatest(ctx, db)
		if err != nil {
			return err
		}
		if v == 0 {
			log.Println("no applied migrations")
			return nil
		}
		log.Printf("rolled back %06d", v)
		return nil
	}

	v, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, v); err != nil {
		return err
	}
	log.Printf("rolled back %06d", v)
	return nil
}

func printStatus(st *database.SchemaStatus) {
	log.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d",
		st.Mode, st.Environment, st.WillRunSQL, st.WillRunAutoMigrate, len(st.Applied), len(st.Pending))
	for _, a := range st.Applied {
		log.Printf("applied  %06d_%s at %s", a.Version, a.Name, a.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
	}
	for _, m := range st.Pending {
		log.Printf("pending  %s", m.String())
	}
	for _, v := range st.Drifted {
		log.Printf("edited   %06d (script changed after it was applied)", v)
	}
	for _, idx := range st.MissingIndexes {
		log.Printf("missing  index %s", idx)
	}
}
