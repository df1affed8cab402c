// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "fieldcase/docs" // swagger docs
	"fieldcase/internal/cache"
	"fieldcase/internal/config"
	"fieldcase/internal/database"
	"fieldcase/internal/featureflags"
	"fieldcase/internal/media"
	"fieldcase/internal/middleware"
	"fieldcase/internal/models"
	"fieldcase/internal/notifications"
	"fieldcase/internal/repository"
	"fieldcase/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	store          repository.Store
	notifier       *notifications.Notifier
	flags          *featureflags.Manager

	userService         *service.UserService
	projectService      *service.ProjectService
	collaboratorService *service.CollaboratorService
	invitationService   *service.InvitationService
	entryService        *service.EntryService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
// redisClient may be nil; rate limits then fail open and token revocation
// is not enforced.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("fieldcase-api"),
		store:          repository.NewStore(db),
		flags:          featureflags.NewManager(cfg.FeatureFlags),
	}
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}

	var signer service.MediaSigner
	if cfg.MediaConfigured() {
		presigner, err := media.NewPresigner(context.Background(), media.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			URLTTL:    time.Duration(cfg.MediaURLTTLMinutes) * time.Minute,
		})
		if err != nil {
			return nil, fmt.Errorf("media presigner: %w", err)
		}
		signer = presigner
	}

	server.wireServices(signer)
	return server, nil
}

// wireServices builds the service layer on top of the store. A nil
// publisher interface is kept nil so services can skip publishing.
func (s *Server) wireServices(signer service.MediaSigner) {
	var publisher service.EventPublisher
	if s.notifier != nil {
		publisher = s.notifier
	}

	s.invitationService = service.NewInvitationService(s.store, publisher, s.config.InvitationTTL())
	s.projectService = service.NewProjectService(s.store)
	s.collaboratorService = service.NewCollaboratorService(s.store, s.invitationService, publisher)
	s.entryService = service.NewEntryService(s.store, signer)
	s.userService = service.NewUserService(s.store, s.invitationService)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: !strings.Contains(origins, "*"),
	}))

	// Global per-IP ceiling; route-level limits are stricter.
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "fieldcase metrics"}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// Registered ahead of the public :token route.
	api.Get("/invitations/me", s.AuthRequired(), s.ListMyInvitations)
	// Resolving is public so the invite page can render before sign-in.
	api.Get("/invitations/:token",
		middleware.RateLimit(s.redis, 30, time.Minute, "invitation_resolve"), s.ResolveInvitation)

	protected := api.Group("", s.AuthRequired())

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/me/features", s.GetMyFeatures)

	protected.Post("/invitations/:token/accept",
		middleware.RateLimit(s.redis, 10, time.Minute, "invitation_accept"), s.AcceptInvitation)

	projects := protected.Group("/projects")
	projects.Get("/", s.ListProjects)
	projects.Post("/", s.CreateProject)
	projects.Get("/:id", s.GetProject)
	projects.Put("/:id", s.UpdateProject)
	projects.Delete("/:id", s.DeleteProject)
	projects.Post("/:id/archive", s.ArchiveProject)
	projects.Post("/:id/unarchive", s.UnarchiveProject)

	projects.Get("/:id/collaborators", s.ListCollaborators)
	projects.Post("/:id/collaborators",
		middleware.RateLimit(s.redis, 20, time.Minute, "collaborator_add"), s.AddCollaborator)
	projects.Put("/:id/collaborators/:userId", s.UpdateCollaboratorRole)
	projects.Delete("/:id/collaborators/:userId", s.RemoveCollaborator)
	projects.Post("/:id/leave", s.LeaveProject)

	projects.Get("/:id/invitations", s.ListProjectInvitations)
	projects.Delete("/:id/invitations/:invitationId", s.RevokeInvitation)

	projects.Get("/:id/entries", s.ListEntries)
	projects.Post("/:id/entries", s.CreateEntry)
	projects.Get("/:id/entries/:entryId", s.GetEntry)
	projects.Put("/:id/entries/:entryId", s.UpdateEntry)
	projects.Delete("/:id/entries/:entryId", s.DeleteEntry)
}

// LivenessCheck handles GET /health/live
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck handles GET /health/ready. The database is required; Redis
// is reported but only degrades the status when it was configured.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	if err := database.Ping(ctx, s.db); err != nil {
		checks["database"] = "down"
		healthy = false
	} else {
		checks["database"] = "up"
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
			healthy = false
		} else {
			checks["redis"] = "up"
		}
	} else {
		checks["redis"] = "disabled"
	}

	status := fiber.StatusOK
	overall := "up"
	if !healthy {
		status = fiber.StatusServiceUnavailable
		overall = "down"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now().UTC(),
	})
}

// AuthRequired returns the bearer-token middleware bound to this server's
// secret and revocation store.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.config.JWTSecret, s.redis)
}

// App builds a Fiber app with middleware and routes attached.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "fieldcase API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			slog.ErrorContext(c.UserContext(), "unhandled error", "err", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier != nil {
		go func() {
			err := s.notifier.StartSubscriber(s.shutdownCtx, func(channel string, ev notifications.Event) {
				slog.Debug("notification delivered",
					"channel", channel, "type", ev.Type, "project_id", ev.ProjectID)
			})
			if err != nil && s.shutdownCtx.Err() == nil {
				slog.Error("notification subscriber stopped", "err", err)
			}
		}()
	}

	slog.Info("Server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", "err", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Error("error closing sql DB", "err", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			slog.Error("error closing redis", "err", rerr)
		}
	}

	slog.Info("Server shutdown complete")
	return nil
}
