package database

import (
	"context"
	"testing"
	"testing/fstest"

	"fieldcase/internal/config"
	"fieldcase/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	// Each :memory: connection is its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestBuildDSN_DefaultsSSLMode(t *testing.T) {
	t.Parallel()
	dsn := buildDSN("db", "5432", "u", "p", "fieldcase", "")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "dbname=fieldcase")
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "000001_init", all[0].String())
	assert.Contains(t, all[0].UpScript, "idx_invitations_pending_email")
	assert.Contains(t, all[0].UpScript, "WHERE status = 'pending'")
	assert.NotEmpty(t, all[0].DownScript)
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrations(t *testing.T) {
	t.Parallel()

	t.Run("sorted by version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/000002_b.up.sql":   {Data: []byte("B")},
			"m/000002_b.down.sql": {Data: []byte("-B")},
			"m/000001_a.up.sql":   {Data: []byte("A")},
			"m/000001_a.down.sql": {Data: []byte("-A")},
			"m/README.md":         {Data: []byte("ignored")},
		}
		got, err := LoadMigrations(fsys, "m")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].Name)
		assert.Equal(t, "-B", got[1].DownScript)
	})

	t.Run("missing down script", func(t *testing.T) {
		fsys := fstest.MapFS{"m/000001_a.up.sql": {Data: []byte("A")}}
		_, err := LoadMigrations(fsys, "m")
		assert.Error(t, err)
	})

	t.Run("bad version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/abc_a.up.sql":   {Data: []byte("A")},
			"m/abc_a.down.sql": {Data: []byte("-A")},
		}
		_, err := LoadMigrations(fsys, "m")
		assert.Error(t, err)
	})
}

func TestValidateAppliedVersions(t *testing.T) {
	t.Parallel()
	registered := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, validateAppliedVersions(nil, registered))
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))
	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}

func TestSchemaPolicy(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     config.Config
		runSQL  bool
		runAuto bool
		wantErr bool
	}{
		{"hybrid dev", config.Config{Env: "development", DBSchemaMode: "hybrid"}, true, true, false},
		{"hybrid prod", config.Config{Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"empty mode is hybrid", config.Config{Env: "test"}, true, true, false},
		{"sql", config.Config{Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"auto dev", config.Config{Env: "test", DBSchemaMode: "auto"}, false, true, false},
		{"auto prod refused", config.Config{Env: "production", DBSchemaMode: "auto"}, false, false, true},
		{"auto prod allowed", config.Config{Env: "staging", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"unknown", config.Config{DBSchemaMode: "yolo"}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planSchema(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.runSQL, plan.runSQL)
			assert.Equal(t, tt.runAuto, plan.runAuto)
		})
	}
}

func TestApplySchema_AutoModeCreatesTables(t *testing.T) {
	db := openSQLite(t)
	cfg := &config.Config{Env: "test", DBSchemaMode: SchemaModeAuto}
	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&models.ProjectInvitation{}, "idx_invitations_pending_email"))

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.Empty(t, status.PendingMigrations)
	assert.Empty(t, status.MissingIndexes)
}

func TestVerifySchema_PendingEmailIndex(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, db.AutoMigrate(PersistentModels()...))
	require.NoError(t, VerifySchema(ctx, db))

	require.NoError(t, db.Migrator().DropIndex(&models.ProjectInvitation{}, "idx_invitations_pending_email"))

	err := VerifySchema(ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "idx_invitations_pending_email")

	status, err := GetSchemaStatus(ctx, db, &config.Config{Env: "test", DBSchemaMode: SchemaModeAuto})
	require.NoError(t, err)
	require.Len(t, status.MissingIndexes, 1)
	assert.Contains(t, status.MissingIndexes[0], "idx_invitations_pending_email")

	// AutoMigrate recreates it from the model tags.
	require.NoError(t, ApplySchema(ctx, db, &config.Config{Env: "test", DBSchemaMode: SchemaModeAuto}))
	assert.True(t, db.Migrator().HasIndex(&models.ProjectInvitation{}, "idx_invitations_pending_email"))
}

func TestMigrationStore_SQLite(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))

	store := NewMigrationStore(db)
	require.NoError(t, store.ApplyMigration(ctx, 1, "init", "CREATE TABLE widgets (id INTEGER PRIMARY KEY)"))
	applied, err := store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)

	// A failing script must not leave a log row.
	assert.Error(t, store.ApplyMigration(ctx, 2, "broken", "CREATE TABLE ("))
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)

	require.NoError(t, store.RemoveMigration(ctx, 1))
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestPersistentModels_IncludesInvitations(t *testing.T) {
	t.Parallel()
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*models.ProjectInvitation); ok {
			found = true
		}
	}
	assert.True(t, found)
}
