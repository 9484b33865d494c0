// Package main prints columns, constraints and row counts of the AlumniHub
// schema for debugging migrations.
package main

import (
	"flag"
	"fmt"
	"log"

	"alumnihub/internal/config"
	"alumnihub/internal/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	table := flag.String("table", "", "Only inspect this table")
	constraint := flag.String("constraint", "", "Find the tables that own this constraint name")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	// Open does not apply the schema, so a broken migration can be inspected.
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if *constraint != "" {
		findConstraint(db, *constraint)
		return
	}

	tables := []string{*table}
	if *table == "" {
		tables = publicTables(db)
	}
	for _, t := range tables {
		describe(db, t)
	}
}

func publicTables(db *gorm.DB) []string {
	var tables []string
	if err := db.Raw("SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name").
		Scan(&tables).Error; err != nil {
		log.Fatalf("list tables: %v", err)
	}
	return tables
}

func describe(db *gorm.DB, table string) {
	var columns []struct {
		ColumnName string `gorm:"column:column_name"`
		DataType   string `gorm:"column:data_type"`
		IsNullable string `gorm:"column:is_nullable"`
	}
	if err := db.Raw("SELECT column_name, data_type, is_nullable FROM information_schema.columns WHERE table_schema = 'public' AND table_name = ? ORDER BY ordinal_position", table).
		Scan(&columns).Error; err != nil {
		log.Fatalf("columns of %s: %v", table, err)
	}

	var constraints []struct {
		Conname string `gorm:"column:conname"`
		Def     string `gorm:"column:def"`
	}
	if err := db.Raw("SELECT c.conname, pg_get_constraintdef(c.oid) AS def FROM pg_constraint c JOIN pg_class r ON c.conrelid = r.oid JOIN pg_namespace n ON n.oid = r.relnamespace WHERE n.nspname = 'public' AND r.relname = ? ORDER BY c.conname", table).
		Scan(&constraints).Error; err != nil {
		log.Fatalf("constraints of %s: %v", table, err)
	}

	var count int64
	if err := db.Table(table).Count(&count).Error; err != nil {
		log.Fatalf("count %s: %v", table, err)
	}

	fmt.Printf("%s (%d rows)\n", table, count)
	for _, c := range columns {
		fmt.Printf("  %-28s %-28s null=%s\n", c.ColumnName, c.DataType, c.IsNullable)
	}
	for _, c := range constraints {
		fmt.Printf("  constraint %s: %s\n", c.Conname, c.Def)
	}
}

func findConstraint(db *gorm.DB, name string) {
	var result []struct {
		Relname string `gorm:"column:relname"`
		Def     string `gorm:"column:def"`
	}
	if err := db.Raw("SELECT r.relname, pg_get_constraintdef(c.oid) AS def FROM pg_constraint c JOIN pg_class r ON c.conrelid = r.oid WHERE c.conname = ?", name).
		Scan(&result).Error; err != nil {
		log.Fatalf("find constraint: %v", err)
	}
	if len(result) == 0 {
		fmt.Printf("No table owns constraint %s\n", name)
		return
	}
	for _, r := range result {
		fmt.Printf("%s: %s\n", r.Relname, r.Def)
	}
}
