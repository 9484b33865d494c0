// Package main drops and recreates the public schema of a development
// database.
package main

import (
	"flag"
	"fmt"
	"log"

	"alumnihub/internal/config"
	"alumnihub/internal/database"

	"github.com/joho/godotenv"
)

func main() {
	confirm := flag.Bool("yes", false, "Confirm dropping every table")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to nuke a production database")
	}
	if !*confirm {
		log.Fatalf("this drops every table in %s; rerun with -yes", cfg.DBName)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Nuking database...")
	if err := db.Exec("DROP SCHEMA public CASCADE; CREATE SCHEMA public;").Error; err != nil {
		log.Fatalf("failed to nuke schema: %v", err)
	}
	if err := db.Exec("GRANT ALL ON SCHEMA public TO public;").Error; err != nil {
		log.Fatalf("failed to grant schema permissions: %v", err)
	}
	fmt.Println("Database nuked. Run `migrate up` to recreate the schema.")
}
