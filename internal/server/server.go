// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "alumnihub/docs" // swagger docs
	"alumnihub/internal/cache"
	"alumnihub/internal/config"
	"alumnihub/internal/database"
	"alumnihub/internal/events"
	"alumnihub/internal/featureflags"
	"alumnihub/internal/middleware"
	"alumnihub/internal/models"
	"alumnihub/internal/notifications"
	"alumnihub/internal/repository"
	"alumnihub/internal/service"

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

	userRepo repository.UserRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	publisher    events.Publisher
	featureFlags *featureflags.Manager

	authService       *service.AuthService
	userService       *service.UserService
	categoryService   *service.CategoryService
	communityService  *service.CommunityService
	membershipService *service.MembershipService
	postService       *service.PostService
	commentService    *service.CommentService
	reportService     *service.ReportService
}

// NewServer connects to the database and Redis and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching and realtime delivery are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	users := repository.NewUserRepository(db)
	categories := repository.NewCategoryRepository(db)
	communities := repository.NewCommunityRepository(db)
	memberships := repository.NewMembershipRepository(db)
	posts := repository.NewPostRepository(db)
	comments := repository.NewCommentRepository(db)
	reports := repository.NewReportRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("alumnihub-api"),
		userRepo:       users,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		publisher: events.New(events.KafkaConfig{
			Brokers: cfg.KafkaBrokerList(),
			Topic:   cfg.KafkaModerationTopic,
		}),
	}

	var notifier service.UserNotifier
	if redisClient != nil && s.featureFlags.Enabled(featureflags.RealtimeNotifications, 0) {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
		notifier = s.notifier
	}

	s.authService = service.NewAuthService(users, cfg.JWTSecret, cfg.JWTTTL())
	s.userService = service.NewUserService(users)
	s.categoryService = service.NewCategoryService(categories)
	s.communityService = service.NewCommunityService(communities, memberships, categories)
	s.membershipService = service.NewMembershipService(communities, memberships, users, notifier, s.publisher)
	s.postService = service.NewPostService(communities, memberships, posts, notifier, s.publisher)
	s.commentService = service.NewCommentService(communities, memberships, posts, comments, notifier, s.publisher)
	s.reportService = service.NewReportService(communities, memberships, posts, comments, reports, notifier, s.publisher)

	return s, nil
}

// NewApp builds a Fiber app with the standard error handler, middleware and
// routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "AlumniHub API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code := models.CodeInternal
				switch fe.Code {
				case fiber.StatusNotFound:
					code = models.CodeNotFound
				case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
					code = models.CodeValidation
				}
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS must run before anything that can short-circuit so error responses
	// still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	if s.config.IsProduction() {
		app.Use(limiter.New(limiter.Config{
			Max:        300,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
					Error: "Too many requests, please try again later.",
					Code:  "RATE_LIMITED",
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{Title: "AlumniHub Metrics"}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	protected := api.Group("", s.AuthRequired()...)
	protected.Get("/auth/me", s.GetMe)

	users := protected.Group("/users")
	users.Get("/", s.ListUsers)
	users.Post("/", s.CreateUser)
	users.Get("/:id", s.GetUser)
	users.Post("/:id/activate", s.ActivateUser)
	users.Post("/:id/deactivate", s.DeactivateUser)

	categories := protected.Group("/categories")
	categories.Get("/", s.ListCategories)
	categories.Post("/", s.CreateCategory)
	categories.Get("/:id", s.GetCategory)
	categories.Put("/:id", s.UpdateCategory)
	categories.Delete("/:id", s.DeleteCategory)

	communities := protected.Group("/communities")
	communities.Get("/", s.ListCommunities)
	communities.Post("/", middleware.RateLimit(s.redis, 10, time.Hour, "create_community"), s.CreateCommunity)
	communities.Get("/slug/:slug", s.GetCommunityBySlug)
	communities.Get("/:id/members", s.ListMembers)
	communities.Get("/:id/members/pending", s.ListPendingMembers)
	communities.Post("/:id/join", s.JoinCommunity)
	communities.Post("/:id/leave", s.LeaveCommunity)
	communities.Post("/:id/invite", s.InviteMember)
	communities.Get("/:id/moderators", s.ListModerators)
	communities.Get("/:id/moderation-log", s.ListModerationActions)
	communities.Get("/:id/posts", s.ListPosts)
	communities.Post("/:id/posts", middleware.RateLimit(s.redis, 20, 5*time.Minute, "create_post"), s.CreatePost)
	communities.Get("/:id", s.GetCommunity)
	communities.Put("/:id", s.UpdateCommunity)
	communities.Delete("/:id", s.DeleteCommunity)

	memberships := protected.Group("/memberships")
	memberships.Get("/me", s.ListMyMemberships)
	memberships.Post("/:id/approve", s.ApproveMembership)
	memberships.Post("/:id/reject", s.RejectMembership)
	memberships.Post("/:id/suspend", s.SuspendMembership)
	memberships.Post("/:id/unsuspend", s.UnsuspendMembership)
	memberships.Post("/:id/promote", s.PromoteMembership)
	memberships.Post("/:id/demote", s.DemoteMembership)
	memberships.Post("/:id/remove", s.RemoveMembership)
	memberships.Put("/:id/permissions", s.UpdateMemberPermissions)

	posts := protected.Group("/posts")
	posts.Get("/:id/comments", s.ListComments)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 30, time.Minute, "create_comment"), s.CreateComment)
	posts.Post("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Get("/:id/likes", s.ListPostLikers)
	posts.Post("/:id/vote", s.VotePoll)
	posts.Post("/:id/approve", s.ApprovePost)
	posts.Post("/:id/reject", s.RejectPost)
	posts.Post("/:id/pin", s.PinPost)
	posts.Delete("/:id/pin", s.UnpinPost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Post("/:id/like", s.LikeComment)
	comments.Delete("/:id/like", s.UnlikeComment)
	comments.Post("/:id/approve", s.ApproveComment)
	comments.Post("/:id/reject", s.RejectComment)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	protected.Get("/likes/me", s.ListMyLikes)

	reports := protected.Group("/reports")
	reports.Post("/", middleware.RateLimit(s.redis, 20, time.Hour, "create_report"), s.CreateReport)
	reports.Get("/", s.ListReports)
	reports.Get("/:id", s.GetReport)
	reports.Patch("/:id", s.UpdateReportStatus)

	protected.Get("/ws", s.WebsocketHandler())

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Put("/feature-flags/:name", s.SetFeatureFlag)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional; its
// absence degrades the check but does not fail it.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// Start starts background workers and serves HTTP until the app shuts down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring",
					slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
			}
		}()
	}

	if s.featureFlags.Enabled(featureflags.SuspensionSweeper, 0) {
		go s.runSuspensionSweeper(ctx, s.config.SuspensionSweepInterval())
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			middleware.Logger.Error("error closing event publisher", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
