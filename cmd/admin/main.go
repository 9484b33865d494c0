// Package main provides operator utilities for AlumniHub.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"alumnihub/internal/config"
	"alumnihub/internal/database"
	"alumnihub/internal/events"
	"alumnihub/internal/models"
	"alumnihub/internal/repository"
	"alumnihub/internal/seed"
	"alumnihub/internal/service"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin set-role <user_id> <role>     - Change a user's global role")
	fmt.Println("  admin list-admins [tenant_id]       - List super and college admins")
	fmt.Println("  admin sweep-suspensions             - Lift suspensions past their end date")
	fmt.Println("  admin sync-counters                 - Recompute community member and post counts")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	switch os.Args[1] {
	case "set-role":
		if len(os.Args) < 4 {
			usage()
		}
		setRole(db, os.Args[2], models.GlobalRole(os.Args[3]))

	case "list-admins":
		var tenantID uint64
		if len(os.Args) > 2 {
			tenantID, err = strconv.ParseUint(os.Args[2], 10, 32)
			if err != nil {
				log.Fatalf("invalid tenant id %q", os.Args[2])
			}
		}
		listAdmins(db, uint(tenantID))

	case "sweep-suspensions":
		sweepSuspensions(cfg, db)

	case "sync-counters":
		if err := seed.SyncCounters(db); err != nil {
			log.Fatalf("Failed to sync counters: %v", err)
		}
		fmt.Println("Community counters recomputed")

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
	}
}

func setRole(db *gorm.DB, userID string, role models.GlobalRole) {
	if !role.Valid() {
		log.Fatalf("Unknown role %q", role)
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with ID %s not found\n", userID)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	if user.Role == role {
		fmt.Printf("User %s (ID: %d) already has role %s\n", user.Username, user.ID, role)
		return
	}

	if err := db.Model(&user).Update("role", role).Error; err != nil {
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("Changed %s (ID: %d) to %s\n", user.Username, user.ID, role)
}

func listAdmins(db *gorm.DB, tenantID uint) {
	q := db.Where("role IN ?", []models.GlobalRole{models.RoleSuperAdmin, models.RoleCollegeAdmin}).Order("tenant_id, id")
	if tenantID != 0 {
		q = q.Where("tenant_id = ?", tenantID)
	}

	var admins []models.User
	if err := q.Find(&admins).Error; err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}
	if len(admins) == 0 {
		fmt.Println("No admins found")
		return
	}

	fmt.Println("Current admins:")
	for _, a := range admins {
		fmt.Printf("ID: %d | Tenant: %d | Role: %s | Username: %s | Email: %s\n",
			a.ID, a.TenantID, a.Role, a.Username, a.Email)
	}
}

func sweepSuspensions(cfg *config.Config, db *gorm.DB) {
	publisher := events.New(events.KafkaConfig{
		Brokers: cfg.KafkaBrokerList(),
		Topic:   cfg.KafkaModerationTopic,
	})
	defer func() { _ = publisher.Close() }()

	memberships := service.NewMembershipService(
		repository.NewCommunityRepository(db),
		repository.NewMembershipRepository(db),
		repository.NewUserRepository(db),
		nil,
		publisher,
	)
	lifted, err := memberships.ExpireSuspensions(context.Background())
	if err != nil {
		log.Fatalf("Sweep failed after lifting %d suspensions: %v", lifted, err)
	}
	fmt.Printf("Lifted %d suspensions\n", lifted)
}
