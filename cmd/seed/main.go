// Command seed fills the database with demo tenants, communities and
// engagement.
package main

import (
	"flag"
	"log"

	"alumnihub/internal/config"
	"alumnihub/internal/database"
	"alumnihub/internal/seed"

	"github.com/joho/godotenv"
)

func main() {
	def := seed.DefaultOptions()
	tenants := flag.Int("tenants", def.Tenants, "Number of tenants (colleges) to create")
	users := flag.Int("users", def.UsersPerTenant, "Users per tenant")
	communities := flag.Int("communities", def.CommunitiesPerTenant, "Communities per tenant")
	posts := flag.Int("posts", def.PostsPerCommunity, "Posts per community")
	maxDays := flag.Int("days", def.MaxDays, "Spread timestamps over this many past days")
	randomSeed := flag.Int64("seed", 0, "Random seed; 0 picks one from the clock")
	shouldClean := flag.Bool("clean", true, "Truncate seeded tables first")
	skipBcrypt := flag.Bool("fast", false, "Hash the demo password at minimum cost")
	dryRun := flag.Bool("dry-run", false, "Log what would be created without writing")
	flag.Parse()

	_ = godotenv.Load()

	log.Println("AlumniHub seeder")
	log.Printf("target: %d tenants x %d users, %d communities, %d posts each, clean=%v dry-run=%v",
		*tenants, *users, *communities, *posts, *shouldClean, *dryRun)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		Tenants:              *tenants,
		UsersPerTenant:       *users,
		CommunitiesPerTenant: *communities,
		PostsPerCommunity:    *posts,
		SkipBcrypt:           *skipBcrypt,
		DryRun:               *dryRun,
		MaxDays:              *maxDays,
		RandomSeed:           *randomSeed,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("cleanup failed: %v", err)
		}
	}

	summary, err := s.Run()
	if err != nil {
		log.Fatalf("seeding failed: %v", err)
	}

	log.Printf("created %d users, %d communities, %d memberships, %d posts, %d comments, %d likes, %d votes",
		summary.Users, summary.Communities, summary.Memberships, summary.Posts,
		summary.Comments, summary.Likes, summary.Votes)
	log.Printf("all demo users share the password: %s", seed.DemoPassword)
}
