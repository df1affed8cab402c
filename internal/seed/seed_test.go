package seed

import (
	"context"
	"testing"
	"time"

	"fieldcase/internal/database"
	"fieldcase/internal/models"
	"fieldcase/internal/repository"
	"fieldcase/internal/service"
	"fieldcase/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func TestBuildEntry_CoordinatesAndTimestamps(t *testing.T) {
	opts := Options{DryRun: true, MaxDays: 10, RandSeed: 42}
	f := NewFactory(nil, opts)
	project := &models.Project{ID: 7}
	author := &models.User{ID: 3}

	for i := 0; i < 20; i++ {
		e := f.BuildEntry(project, author)
		require.NotNil(t, e.Latitude)
		require.NotNil(t, e.Longitude)
		assert.NoError(t, validation.ValidateCoordinates(e.Latitude, e.Longitude))
		assert.True(t, e.EntryType.IsValid())
		assert.LessOrEqual(t, len(e.Tags), 3)
		assert.Equal(t, uint(7), e.ProjectID)
		assert.Equal(t, uint(3), e.CreatedByID)
		assert.WithinDuration(t, time.Now(), e.CreatedAt, time.Duration(opts.MaxDays+1)*24*time.Hour)
	}
}

func TestFactory_DryRunAssignsIDs(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, SkipBcrypt: true})

	u, err := f.CreateUser()
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, DemoPassword, u.Password)
	assert.LessOrEqual(t, len(u.Username), 30)

	p, err := f.CreateProject(u)
	require.NoError(t, err)
	assert.NotEqual(t, u.ID, p.ID)
	assert.Equal(t, u.ID, p.OwnerID)

	_, err = f.AddCollaborator(p, u, models.RoleOwner)
	assert.Error(t, err)
}

func TestSeed_SQLite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sum, err := Seed(ctx, db, Options{
		NumUsers:          5,
		NumProjects:       3,
		EntriesPerProject: 4,
		InvitesPerProject: 2,
		RandSeed:          7,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Users)
	assert.Equal(t, 3, sum.Projects)
	assert.Equal(t, 12, sum.Entries)
	assert.Equal(t, 6, sum.Invitations)

	var projects []models.Project
	require.NoError(t, db.Find(&projects).Error)
	require.Len(t, projects, 3)
	for _, p := range projects {
		var owner models.ProjectCollaborator
		require.NoError(t, db.Where("project_id = ? AND user_id = ?", p.ID, p.OwnerID).First(&owner).Error)
		assert.Equal(t, models.RoleOwner, owner.Role)

		var owners int64
		require.NoError(t, db.Model(&models.ProjectCollaborator{}).
			Where("project_id = ? AND role = ?", p.ID, models.RoleOwner).Count(&owners).Error)
		assert.Equal(t, int64(1), owners)
	}

	// Entry authors always hold a writing role on the project.
	var entries []models.Entry
	require.NoError(t, db.Find(&entries).Error)
	for _, e := range entries {
		var c models.ProjectCollaborator
		require.NoError(t, db.Where("project_id = ? AND user_id = ?", e.ProjectID, e.CreatedByID).First(&c).Error)
		assert.NotEqual(t, models.RoleViewer, c.Role)
	}

	var pending int64
	require.NoError(t, db.Model(&models.ProjectInvitation{}).
		Where("status = ?", models.InvitationStatusPending).Count(&pending).Error)
	assert.Equal(t, int64(6), pending)
}

func TestSeed_UsersCanLogIn(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := Seed(ctx, db, Options{NumUsers: 1, RandSeed: 3})
	require.NoError(t, err)

	var u models.User
	require.NoError(t, db.First(&u).Error)

	users := service.NewUserService(repository.NewStore(db), nil)
	got, err := users.Authenticate(ctx, u.Email, DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestClearAll(t *testing.T) {
	db := newTestDB(t)
	_, err := Seed(context.Background(), db, Options{
		NumUsers: 2, NumProjects: 1, EntriesPerProject: 2, InvitesPerProject: 1, SkipBcrypt: true,
	})
	require.NoError(t, err)

	require.NoError(t, ClearAll(db))
	for _, m := range []any{&models.User{}, &models.Project{}, &models.Entry{}, &models.ProjectCollaborator{}, &models.ProjectInvitation{}} {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n)
	}
}
