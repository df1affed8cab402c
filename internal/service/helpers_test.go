package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fieldcase/internal/database"
	"fieldcase/internal/models"
	"fieldcase/internal/notifications"
	"fieldcase/internal/repository"
	"fieldcase/internal/repository/memory"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, models.IsCode(err, code), "expected %s app error, got %#v", code, err)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// newSQLiteStore returns a GORM store on a private in-memory database.
func newSQLiteStore(t *testing.T) repository.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return repository.NewStore(db)
}

// stores runs fn against both store implementations.
func stores(t *testing.T, fn func(t *testing.T, st repository.Store)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) { fn(t, memory.New()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func createUser(t *testing.T, st repository.Store, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x", DisplayName: name}
	require.NoError(t, st.Users().Create(context.Background(), u))
	return u
}

// createProjectWith creates a project owned by owner and grants the given roles.
func createProjectWith(t *testing.T, st repository.Store, owner *models.User, roles map[*models.User]models.Role) *models.Project {
	t.Helper()
	ctx := context.Background()
	p, err := NewProjectService(st).CreateProject(ctx, CreateProjectInput{OwnerID: owner.ID, Title: "Riverside burglaries"})
	require.NoError(t, err)
	for u, role := range roles {
		require.NoError(t, st.Collaborators().Create(ctx, &models.ProjectCollaborator{ProjectID: p.ID, UserID: u.ID, Role: role}))
	}
	return p
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
