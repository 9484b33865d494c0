// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"alumnihub/internal/models"
	"alumnihub/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account. It satisfies the
// account password policy.
const DemoPassword = "Alumni-Demo-2026!"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	r    *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
	// password hash shared by every seeded user
	hash string
	// suffix counter keeping usernames and slugs unique
	seq int
}

// NewFactory creates a Factory bound to db. passwordHash is stored on every
// user it creates.
func NewFactory(db *gorm.DB, opts Options, passwordHash string) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	return &Factory{
		db:     db,
		opts:   opts,
		r:      rand.New(rand.NewSource(seed)), // #nosec G404: acceptable for seeding
		nextID: 1000,
		hash:   passwordHash,
	}
}

func (f *Factory) persist(label string, value any, id *uint) error {
	if f.opts.DryRun {
		f.nextID++
		*id = f.nextID
		log.Printf("[dry-run] %s id=%d", label, *id)
		return nil
	}
	return f.db.Create(value).Error
}

// backdate returns a timestamp within the last MaxDays.
func (f *Factory) backdate() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.r.Intn(maxDays))*24*time.Hour +
		time.Duration(f.r.Intn(24))*time.Hour +
		time.Duration(f.r.Intn(60))*time.Minute
	return time.Now().UTC().Add(-back)
}

func (f *Factory) nextSeq() int {
	f.seq++
	return f.seq
}

// BuildUser constructs an unsaved user of tenantID.
func (f *Factory) BuildUser(tenantID uint, role models.GlobalRole) *models.User {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	handle := strings.ToLower(validation.Slugify(first + " " + last))
	handle = strings.ReplaceAll(handle, "-", "_")
	suffix := 1000 + f.nextSeq()
	return &models.User{
		TenantID: tenantID,
		Username: fmt.Sprintf("%s_%d", handle, suffix),
		Email:    fmt.Sprintf("%s.%d@t%d.alumni.example", strings.ReplaceAll(handle, "_", "."), suffix, tenantID),
		Password: f.hash,
		FullName: first + " " + last,
		Role:     role,
		IsActive: true,
	}
}

// CreateUser persists a user. Optional overrides run before saving.
func (f *Factory) CreateUser(tenantID uint, role models.GlobalRole, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(tenantID, role)
	for _, override := range overrides {
		override(user)
	}
	if err := f.persist("CreateUser", user, &user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

var communityThemes = []string{
	"Class of %d", "%d Reunion Committee", "Engineering Alumni %d", "Young Alumni %d",
}

var chapterCities = []string{
	"Boston", "Chicago", "Austin", "Seattle", "Denver", "Atlanta", "Toronto", "London", "Bangalore", "Singapore",
}

// BuildCommunity constructs an unsaved community created by creator.
func (f *Factory) BuildCommunity(creator *models.User, typ models.CommunityType, categoryID *uint) *models.Community {
	var name string
	if f.r.Intn(2) == 0 {
		name = fmt.Sprintf(communityThemes[f.r.Intn(len(communityThemes))], 1990+f.r.Intn(36))
	} else {
		name = chapterCities[f.r.Intn(len(chapterCities))] + " Chapter"
	}
	settings := models.DefaultCommunitySettings()
	settings.RequirePostApproval = f.r.Intn(4) == 0
	settings.AllowMemberInvites = f.r.Intn(2) == 0

	return &models.Community{
		TenantID:        creator.TenantID,
		Name:            name,
		Slug:            fmt.Sprintf("%s-%d", validation.Slugify(name), f.nextSeq()),
		Description:     gofakeit.Paragraph(1, 2, 12, " "),
		Type:            typ,
		CategoryID:      categoryID,
		Settings:        settings,
		CreatedByUserID: creator.ID,
		CreatedAt:       f.backdate(),
	}
}

// CreateCommunity persists a community together with the creator's admin
// membership.
func (f *Factory) CreateCommunity(creator *models.User, typ models.CommunityType, categoryID *uint) (*models.Community, error) {
	c := f.BuildCommunity(creator, typ, categoryID)
	if err := f.persist("CreateCommunity", c, &c.ID); err != nil {
		return nil, err
	}
	if _, err := f.CreateMembership(c, creator, models.MembershipRoleAdmin, models.MembershipStatusApproved); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateMembership persists a ledger row.
func (f *Factory) CreateMembership(c *models.Community, u *models.User, role models.MembershipRole, status models.MembershipStatus) (*models.Membership, error) {
	m := &models.Membership{
		CommunityID: c.ID,
		UserID:      u.ID,
		Role:        role,
		Status:      status,
	}
	if status == models.MembershipStatusApproved {
		joined := c.CreatedAt.Add(time.Duration(f.r.Intn(72)) * time.Hour)
		m.JoinedAt = &joined
	}
	if err := f.persist("CreateMembership", m, &m.ID); err != nil {
		return nil, err
	}
	return m, nil
}

// BuildPost constructs an unsaved post of the given type.
func (f *Factory) BuildPost(c *models.Community, author *models.User, postType models.PostType, status models.ContentStatus) *models.Post {
	post := &models.Post{
		CommunityID: c.ID,
		AuthorID:    author.ID,
		Title:       strings.TrimSuffix(gofakeit.Sentence(6), "."),
		Content:     gofakeit.Paragraph(1, 3, 14, "\n\n"),
		Type:        postType,
		Status:      status,
		CreatedAt:   f.backdate(),
	}
	switch postType {
	case models.PostTypeLink:
		post.LinkURL = "https://" + gofakeit.DomainName() + "/" + validation.Slugify(gofakeit.BuzzWord())
	case models.PostTypePoll:
		post.Title = "Where should we meet next?"
		n := 2 + f.r.Intn(3)
		seen := map[string]bool{}
		for len(post.PollOptions) < n {
			city := gofakeit.City()
			if seen[strings.ToLower(city)] {
				continue
			}
			seen[strings.ToLower(city)] = true
			post.PollOptions = append(post.PollOptions, models.PollOption{Text: city, Position: len(post.PollOptions)})
		}
	}
	return post
}

// CreatePost persists a post with its poll options.
func (f *Factory) CreatePost(c *models.Community, author *models.User, postType models.PostType, status models.ContentStatus) (*models.Post, error) {
	post := f.BuildPost(c, author, postType, status)
	if err := f.persist("CreatePost", post, &post.ID); err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment. parent may be nil.
func (f *Factory) CreateComment(post *models.Post, author *models.User, parent *models.Comment) (*models.Comment, error) {
	c := &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Content:  gofakeit.Sentence(4 + f.r.Intn(14)),
		Status:   models.ContentStatusApproved,
	}
	if parent != nil {
		c.ParentCommentID = &parent.ID
	}
	if err := f.persist("CreateComment", c, &c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateLike persists a like from user on post.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	like := &models.Like{UserID: user.ID, PostID: post.ID}
	return f.persist("CreateLike", like, &like.ID)
}

// CreateVote records user's choice on a poll post.
func (f *Factory) CreateVote(user *models.User, post *models.Post) error {
	if len(post.PollOptions) == 0 {
		return nil
	}
	opt := post.PollOptions[f.r.Intn(len(post.PollOptions))]
	vote := &models.PollVote{PostID: post.ID, UserID: user.ID, PollOptionID: opt.ID}
	return f.persist("CreateVote", vote, &vote.ID)
}
