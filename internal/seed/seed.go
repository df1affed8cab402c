package seed

import (
	"context"
	"fmt"
	"log"

	"fieldcase/internal/models"
	"fieldcase/internal/repository"
	"fieldcase/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers          int
	NumProjects       int
	EntriesPerProject int
	// InvitesPerProject pending invitations go to addresses with no account.
	InvitesPerProject int
	ShouldClean       bool
	DryRun            bool
	SkipBcrypt        bool
	MaxDays           int
	RandSeed          int64
}

// Summary counts what Seed created.
type Summary struct {
	Users         int
	Projects      int
	Collaborators int
	Entries       int
	Invitations   int
}

// seededTables are cleared children first.
var seededTables = []string{
	"project_invitations",
	"entries",
	"project_collaborators",
	"projects",
	"users",
}

// Seed populates the database with demo users, projects, entries and
// pending invitations.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("🌱 Seeding %d users and %d projects...", opts.NumUsers, opts.NumProjects)
	if opts.NumUsers < 1 {
		return nil, fmt.Errorf("seed: need at least one user")
	}

	if opts.ShouldClean && !opts.DryRun {
		if err := ClearAll(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f := NewFactory(db, opts)
	sum := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	log.Printf("✓ %d users created", sum.Users)

	var invitations *service.InvitationService
	if !opts.DryRun {
		invitations = service.NewInvitationService(repository.NewStore(db), nil, 0)
	}

	for i := 0; i < opts.NumProjects; i++ {
		owner := users[i%len(users)]
		project, err := f.CreateProject(owner)
		if err != nil {
			return nil, fmt.Errorf("failed to create project: %w", err)
		}
		sum.Projects++

		members := []*models.User{owner}
		for _, u := range f.pickMembers(users, owner) {
			role := models.RoleEditor
			if f.rng.Intn(3) == 0 {
				role = models.RoleViewer
			}
			if _, err := f.AddCollaborator(project, u, role); err != nil {
				return nil, fmt.Errorf("failed to add collaborator: %w", err)
			}
			sum.Collaborators++
			if role == models.RoleEditor {
				members = append(members, u)
			}
		}

		for j := 0; j < opts.EntriesPerProject; j++ {
			author := members[f.rng.Intn(len(members))]
			if _, err := f.CreateEntry(project, author); err != nil {
				return nil, fmt.Errorf("failed to create entry: %w", err)
			}
			sum.Entries++
		}

		if invitations == nil {
			continue
		}
		for j := 0; j < opts.InvitesPerProject; j++ {
			res, err := invitations.Issue(ctx, service.IssueInvitationInput{
				ProjectID:   project.ID,
				InvitedByID: owner.ID,
				Email:       fmt.Sprintf("invitee-%d-%d@%s", project.ID, j, gofakeit.DomainName()),
				Role:        models.RoleEditor,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to issue invitation: %w", err)
			}
			if res.Outcome == service.OutcomeInvited {
				sum.Invitations++
			}
		}
	}
	log.Printf("✓ %d projects, %d collaborators, %d entries, %d invitations",
		sum.Projects, sum.Collaborators, sum.Entries, sum.Invitations)

	log.Println("🎉 Database seeding completed successfully!")
	return sum, nil
}

// pickMembers returns up to three users other than owner.
func (f *Factory) pickMembers(users []*models.User, owner *models.User) []*models.User {
	candidates := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.ID != owner.ID {
			candidates = append(candidates, u)
		}
	}
	f.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	n := min(len(candidates), f.rng.Intn(4))
	return candidates[:n]
}

// ClearAll removes every seeded row. On PostgreSQL identities restart too.
func ClearAll(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE project_invitations, entries, project_collaborators, projects, users RESTART IDENTITY CASCADE`).Error
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range seededTables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
