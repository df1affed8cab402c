// Package bootstrap wires process-wide dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fieldcase/internal/cache"
	"fieldcase/internal/config"
	"fieldcase/internal/database"
	"fieldcase/internal/middleware"
	"fieldcase/internal/observability"
	"fieldcase/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development database with demo data.
	SeedDemo bool
	// ServiceVersion is reported on trace resources.
	ServiceVersion string
}

// Runtime is the set of shared dependencies a command runs with.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	// ShutdownTracing flushes pending spans.
	ShutdownTracing func(context.Context) error
}

// InitRuntime configures logging and tracing, connects to the database and
// Redis, and optionally seeds demo data. Redis is optional: a nil client
// means it was unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	middleware.InitLogger(cfg.Env, "")

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "fieldcase-api",
		ServiceVersion: opts.ServiceVersion,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	rt := &Runtime{DB: db, Redis: cache.GetClient(), ShutdownTracing: shutdownTracing}

	if opts.SeedDemo {
		if err := seedIfEmpty(ctx, cfg, db); err != nil {
			return nil, fmt.Errorf("demo seed failed: %w", err)
		}
	}
	return rt, nil
}

func seedIfEmpty(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if !strings.EqualFold(cfg.Env, "development") {
		slog.Warn("demo seeding skipped outside development", "env", cfg.Env)
		return nil
	}
	var users int64
	if err := db.WithContext(ctx).Table("users").Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}
	_, err := seed.Seed(ctx, db, seed.Options{
		NumUsers:          10,
		NumProjects:       4,
		EntriesPerProject: 12,
		InvitesPerProject: 1,
	})
	return err
}
