package seed

import (
	"fmt"
	"log"

	"alumnihub/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configure a seeding run.
type Options struct {
	Tenants              int
	UsersPerTenant       int
	CommunitiesPerTenant int
	PostsPerCommunity    int
	// SkipBcrypt hashes the demo password at bcrypt.MinCost.
	SkipBcrypt bool
	DryRun     bool
	// MaxDays bounds how far back generated timestamps reach.
	MaxDays    int
	RandomSeed int64
}

// DefaultOptions returns a small but representative data set.
func DefaultOptions() Options {
	return Options{
		Tenants:              2,
		UsersPerTenant:       25,
		CommunitiesPerTenant: 6,
		PostsPerCommunity:    12,
		MaxDays:              120,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users       int
	Communities int
	Memberships int
	Posts       int
	Comments    int
	Likes       int
	Votes       int
}

// Seeder populates the database with demo tenants.
type Seeder struct {
	db   *gorm.DB
	opts Options
}

// NewSeeder creates a Seeder.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts}
}

// seededTables lists every table the seeder writes, children first.
var seededTables = []string{
	"moderation_actions", "reports", "comment_likes", "likes", "poll_votes", "poll_options",
	"comments", "posts", "community_memberships", "communities", "events", "job_posts", "categories", "users",
}

// ClearAll removes every seeded row. Postgres only.
func (s *Seeder) ClearAll() error {
	if s.opts.DryRun {
		log.Println("[dry-run] skipping cleanup")
		return nil
	}
	log.Println("🗑️  Clearing existing data...")
	sql := "TRUNCATE TABLE "
	for i, t := range seededTables {
		if i > 0 {
			sql += ", "
		}
		sql += t
	}
	sql += " RESTART IDENTITY CASCADE"
	return s.db.Exec(sql).Error
}

// Run seeds every tenant and returns what was created.
func (s *Seeder) Run() (Summary, error) {
	var sum Summary
	cost := bcrypt.DefaultCost
	if s.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return sum, fmt.Errorf("hash demo password: %w", err)
	}
	f := NewFactory(s.db, s.opts, string(hash))

	log.Printf("🌱 Seeding %d tenants (%d users, %d communities each)...",
		s.opts.Tenants, s.opts.UsersPerTenant, s.opts.CommunitiesPerTenant)

	for tenant := 1; tenant <= s.opts.Tenants; tenant++ {
		if err := s.seedTenant(f, uint(tenant), &sum); err != nil {
			return sum, fmt.Errorf("tenant %d: %w", tenant, err)
		}
		log.Printf("✓ tenant %d seeded", tenant)
	}

	if !s.opts.DryRun {
		if err := SyncCounters(s.db); err != nil {
			return sum, err
		}
	}
	log.Printf("🎉 Seeding complete: %d users, %d communities, %d posts, %d comments",
		sum.Users, sum.Communities, sum.Posts, sum.Comments)
	return sum, nil
}

func (s *Seeder) seedTenant(f *Factory, tenantID uint, sum *Summary) error {
	var communityCategories []models.Category
	if !s.opts.DryRun {
		if err := Categories(s.db, tenantID); err != nil {
			return err
		}
		if err := s.db.Where("tenant_id = ? AND entity_type = ?", tenantID, models.CategoryEntityCommunity).
			Order("sort_order").Find(&communityCategories).Error; err != nil {
			return fmt.Errorf("load community categories: %w", err)
		}
	}

	admin, err := f.CreateUser(tenantID, models.RoleCollegeAdmin, func(u *models.User) {
		u.Username = fmt.Sprintf("admin_t%d", tenantID)
		u.Email = fmt.Sprintf("admin@t%d.alumni.example", tenantID)
		u.FullName = "Alumni Office"
	})
	if err != nil {
		return err
	}
	users := []*models.User{admin}
	for i := 1; i < s.opts.UsersPerTenant; i++ {
		role := models.RoleMember
		if i%10 == 0 {
			role = models.RoleStaff
		}
		u, err := f.CreateUser(tenantID, role)
		if err != nil {
			return err
		}
		users = append(users, u)
	}
	sum.Users += len(users)

	types := []models.CommunityType{models.CommunityTypeOpen, models.CommunityTypeOpen, models.CommunityTypeClosed, models.CommunityTypeHidden}
	for i := 0; i < s.opts.CommunitiesPerTenant; i++ {
		creator := users[f.r.Intn(len(users))]
		var categoryID *uint
		if len(communityCategories) > 0 {
			categoryID = &communityCategories[i%len(communityCategories)].ID
		}
		c, err := f.CreateCommunity(creator, types[i%len(types)], categoryID)
		if err != nil {
			return err
		}
		sum.Communities++
		sum.Memberships++
		if err := s.seedCommunity(f, c, creator, users, sum); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedCommunity(f *Factory, c *models.Community, creator *models.User, users []*models.User, sum *Summary) error {
	var members []*models.User
	members = append(members, creator)
	for _, u := range users {
		if u.ID == creator.ID || f.r.Intn(3) != 0 {
			continue
		}
		role := models.MembershipRoleMember
		status := models.MembershipStatusApproved
		switch n := f.r.Intn(20); {
		case n == 0:
			role = models.MembershipRoleModerator
		case n == 1 && c.Type != models.CommunityTypeOpen:
			status = models.MembershipStatusPending
		case n == 2:
			status = models.MembershipStatusLeft
		}
		if _, err := f.CreateMembership(c, u, role, status); err != nil {
			return err
		}
		sum.Memberships++
		if status == models.MembershipStatusApproved {
			members = append(members, u)
		}
	}

	for i := 0; i < s.opts.PostsPerCommunity; i++ {
		author := members[f.r.Intn(len(members))]
		postType := models.PostTypeText
		switch f.r.Intn(8) {
		case 0:
			postType = models.PostTypePoll
		case 1, 2:
			postType = models.PostTypeLink
		}
		status := models.ContentStatusApproved
		if c.Settings.RequirePostApproval && author.ID != creator.ID && f.r.Intn(3) == 0 {
			status = models.ContentStatusPending
		}
		post, err := f.CreatePost(c, author, postType, status)
		if err != nil {
			return err
		}
		sum.Posts++
		if status != models.ContentStatusApproved {
			continue
		}

		var top *models.Comment
		for j := f.r.Intn(4); j > 0; j-- {
			var parent *models.Comment
			if top != nil && f.r.Intn(2) == 0 {
				parent = top
			}
			cm, err := f.CreateComment(post, members[f.r.Intn(len(members))], parent)
			if err != nil {
				return err
			}
			if parent == nil {
				top = cm
			}
			sum.Comments++
		}

		for _, m := range members {
			if f.r.Intn(3) == 0 {
				if err := f.CreateLike(m, post); err != nil {
					return err
				}
				sum.Likes++
			}
			if postType == models.PostTypePoll && f.r.Intn(2) == 0 {
				if err := f.CreateVote(m, post); err != nil {
					return err
				}
				sum.Votes++
			}
		}
	}
	return nil
}

// SyncCounters recomputes the denormalized community counters from the
// membership ledger and the post table.
func SyncCounters(db *gorm.DB) error {
	err := db.Exec(`UPDATE communities SET
		member_count = (SELECT COUNT(*) FROM community_memberships m
			WHERE m.community_id = communities.id AND m.status IN (?, ?)),
		post_count = (SELECT COUNT(*) FROM posts p
			WHERE p.community_id = communities.id AND p.status = ? AND p.deleted_at IS NULL)`,
		models.MembershipStatusApproved, models.MembershipStatusSuspended, models.ContentStatusApproved,
	).Error
	if err != nil {
		return fmt.Errorf("sync community counters: %w", err)
	}
	return nil
}
