// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"fieldcase/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded account. It satisfies the
// signup password policy so seeded users can log in.
const DemoPassword = "Fieldcase-Demo-1"

var entryTypes = []models.EntryType{
	models.EntryTypeEvidence,
	models.EntryTypeLead,
	models.EntryTypeInterview,
	models.EntryTypeNote,
}

var entryTags = []string{
	"witness", "vehicle", "timeline", "cctv", "forensics",
	"follow-up", "alibi", "scene", "phone-records", "verified",
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by Seed and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB. db may be
// nil in DryRun mode.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(seed)
	gofakeit.SetGlobalFaker(faker)
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

func (f *Factory) persist(kind string, v any, id *uint) error {
	if f.opts.DryRun {
		f.nextID++
		*id = f.nextID
		log.Printf("[dry-run] create %s id=%d", kind, *id)
		return nil
	}
	return f.db.Create(v).Error
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	user := &models.User{
		Username:    fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
		Email:       models.NormalizeEmail(gofakeit.Email()),
		DisplayName: first + " " + last,
	}
	if len(user.Username) > 30 {
		user.Username = user.Username[:30]
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = DemoPassword
	} else {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.persist("user", user, &user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateProject persists a project owned by owner together with the owner's
// collaborator row.
func (f *Factory) CreateProject(owner *models.User, overrides ...func(*models.Project)) (*models.Project, error) {
	project := &models.Project{
		Title:       fmt.Sprintf("%s %s case", gofakeit.City(), gofakeit.Noun()),
		Description: gofakeit.Paragraph(1, 2, 12, " "),
		OwnerID:     owner.ID,
	}
	if len(project.Title) > models.MaxProjectTitleLen {
		project.Title = project.Title[:models.MaxProjectTitleLen]
	}
	for _, override := range overrides {
		override(project)
	}

	if f.opts.DryRun {
		return project, f.persist("project", project, &project.ID)
	}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Owner").Create(project).Error; err != nil {
			return err
		}
		return tx.Create(&models.ProjectCollaborator{
			ProjectID: project.ID,
			UserID:    owner.ID,
			Role:      models.RoleOwner,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// AddCollaborator persists a collaborator row. Granting owner is rejected.
func (f *Factory) AddCollaborator(project *models.Project, user *models.User, role models.Role) (*models.ProjectCollaborator, error) {
	if role == models.RoleOwner {
		return nil, fmt.Errorf("seed: owner role is fixed at project creation")
	}
	collab := &models.ProjectCollaborator{ProjectID: project.ID, UserID: user.ID, Role: role}
	if f.opts.DryRun {
		log.Printf("[dry-run] add collaborator project=%d user=%d role=%s", project.ID, user.ID, role)
		return collab, nil
	}
	if err := f.db.Omit("Project", "User").Create(collab).Error; err != nil {
		return nil, err
	}
	return collab, nil
}

// BuildEntry constructs an entry without persisting it. Coordinates fall
// within a small box around a fixed point so seeded maps stay readable.
func (f *Factory) BuildEntry(project *models.Project, author *models.User, overrides ...func(*models.Entry)) *models.Entry {
	lat := strconv.FormatFloat(51.5074+f.rng.Float64()*0.1-0.05, 'f', 6, 64)
	lng := strconv.FormatFloat(-0.1278+f.rng.Float64()*0.1-0.05, 'f', 6, 64)

	entry := &models.Entry{
		ProjectID:   project.ID,
		CreatedByID: author.ID,
		Title:       gofakeit.Sentence(5),
		Description: gofakeit.Paragraph(1, 3, 10, "\n"),
		EntryType:   entryTypes[f.rng.Intn(len(entryTypes))],
		Latitude:    &lat,
		Longitude:   &lng,
		Tags:        f.pickTags(),
		Links:       []string{},
	}
	if f.rng.Intn(3) == 0 {
		entry.Links = append(entry.Links, gofakeit.URL())
	}
	if len(entry.Title) > models.MaxEntryTitleLen {
		entry.Title = entry.Title[:models.MaxEntryTitleLen]
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	entry.CreatedAt = time.Now().UTC().Add(-time.Duration(f.rng.Intn(maxDays*24*60)) * time.Minute)

	for _, override := range overrides {
		override(entry)
	}
	return entry
}

// CreateEntry builds and persists an entry.
func (f *Factory) CreateEntry(project *models.Project, author *models.User, overrides ...func(*models.Entry)) (*models.Entry, error) {
	entry := f.BuildEntry(project, author, overrides...)
	if f.opts.DryRun {
		return entry, f.persist("entry", entry, &entry.ID)
	}
	if err := f.db.Omit("Project", "CreatedBy").Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (f *Factory) pickTags() []string {
	n := f.rng.Intn(4)
	tags := make([]string, 0, n)
	seen := map[string]bool{}
	for len(tags) < n {
		tag := entryTags[f.rng.Intn(len(entryTags))]
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}
