package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fieldcase/internal/config"
	"fieldcase/internal/middleware"
	"fieldcase/internal/models"

	"gorm.io/gorm"
)

// Schema modes selected by DB_SCHEMA_MODE.
const (
	// SchemaModeHybrid applies SQL migrations, then AutoMigrate outside prod-like envs.
	SchemaModeHybrid = "hybrid"
	// SchemaModeSQL applies only the embedded SQL migrations.
	SchemaModeSQL = "sql"
	// SchemaModeAuto applies only GORM AutoMigrate.
	SchemaModeAuto = "auto"
)

// requiredIndex is an index the services rely on for correctness, not speed.
type requiredIndex struct {
	model any
	name  string
	why   string
}

// requiredIndexes back the invitation race handling: one live invitation per
// (project, email) and globally unique tokens.
var requiredIndexes = []requiredIndex{
	{&models.ProjectInvitation{}, "idx_invitations_pending_email", "one pending invitation per project and email"},
	{&models.ProjectInvitation{}, "idx_project_invitations_token", "unique invitation tokens"},
}

// schemaPlan is what ApplySchema will do for a config.
type schemaPlan struct {
	mode    string
	env     string
	runSQL  bool
	runAuto bool
	// destructive is set when AutoMigrate was explicitly allowed in a prod-like env.
	destructive bool
}

// SchemaStatus describes what ApplySchema would do against a database and
// what it would find there.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	MissingIndexes     []string
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{
		mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		env:  strings.ToLower(strings.TrimSpace(cfg.Env)),
	}
	if plan.mode == "" {
		plan.mode = SchemaModeHybrid
	}

	prodLike := false
	switch plan.env {
	case "production", "prod", "staging", "stage":
		prodLike = true
	}

	switch plan.mode {
	case SchemaModeSQL:
		plan.runSQL = true
	case SchemaModeHybrid:
		plan.runSQL, plan.runAuto = true, !prodLike
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.runAuto = true
		plan.destructive = prodLike
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.mode)
	}
	return plan, nil
}

// ApplySchema brings the schema up to date according to cfg.DBSchemaMode and
// then checks that the invitation indexes exist.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if plan.runAuto {
		if plan.destructive {
			middleware.Logger.Warn("AutoMigrate enabled in a prod-like environment",
				slog.String("env", plan.env))
		}
		middleware.Logger.Info("Running GORM AutoMigrate",
			slog.String("mode", plan.mode), slog.String("env", plan.env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return VerifySchema(ctx, db)
}

// VerifySchema fails when an index the invitation flow depends on is missing.
// Without idx_invitations_pending_email two concurrent issues for the same
// address would both succeed.
func VerifySchema(ctx context.Context, db *gorm.DB) error {
	missing := missingIndexes(db.WithContext(ctx))
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("schema is missing required indexes: %s", strings.Join(missing, ", "))
}

func missingIndexes(db *gorm.DB) []string {
	var missing []string
	m := db.Migrator()
	for _, idx := range requiredIndexes {
		if !m.HasIndex(idx.model, idx.name) {
			missing = append(missing, fmt.Sprintf("%s (%s)", idx.name, idx.why))
		}
	}
	return missing
}

// GetSchemaStatus reports applied and pending migrations and missing indexes
// without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.runSQL,
		WillRunAutoMigrate: plan.runAuto,
		MissingIndexes:     missingIndexes(db.WithContext(ctx)),
	}
	if !plan.runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	done := make(map[int]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}
	for _, m := range GetMigrations() {
		if _, ok := done[m.Version]; !ok {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
