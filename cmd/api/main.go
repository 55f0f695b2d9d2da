package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	_ "contacts-sync/docs" // Import swagger docs
	common_api "contacts-sync/internal/common/api"
	common_models "contacts-sync/internal/common/models"
	"contacts-sync/internal/config"
	"contacts-sync/internal/database"
	"contacts-sync/internal/features/audit"
	"contacts-sync/internal/features/contact"
	"contacts-sync/internal/features/integration"
	"contacts-sync/internal/features/provisioning"
	"contacts-sync/internal/features/sync"
	"contacts-sync/internal/features/system"
	"contacts-sync/internal/logger"
	"contacts-sync/internal/middleware"
	"contacts-sync/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
	})

	app.Use(middleware.CORSMiddleware(cfg))
	app.Use(middleware.RequestMiddleware(log))

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, log *zap.Logger) {
	log.Info("registering routes", zap.Int("count", len(routes)))
	for _, route := range routes {
		log.Debug("setting up route", zap.String("route", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				log.Info("listening", zap.String("addr", port))
				if err := app.Listen(port); err != nil {
					log.Fatal("server failed to start", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(
	lc fx.Lifecycle,
	log *zap.Logger,
	contacts contact.ContactRepository,
	links sync.LinkRepository,
	conflicts sync.ConflictLogRepository,
	runs sync.SyncLogRepository,
	audits audit.AuditRepository,
) {
	repos := map[string]indexer{
		"contacts":      contacts,
		"contact_links": links,
		"conflict_logs": conflicts,
		"sync_logs":     runs,
		"audit_logs":    audits,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				// Use a background context with timeout for index creation
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				for name, repo := range repos {
					if err := repo.EnsureIndexes(ctx); err != nil {
						log.Error("failed to ensure indexes", zap.String("collection", name), zap.Error(err))
					}
				}
			}()
			return nil
		},
	})
}

// StartScheduler runs scheduled re-provisioning for the app's lifetime.
func StartScheduler(lc fx.Lifecycle, scheduler *provisioning.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start()
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}

// @title           Contacts Sync API
// @version         1.0
// @description     Customer-scoped contacts with CRM pronouns field provisioning and sync bookkeeping.

// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	utils.SetSecret(cfg.JWTSecret)

	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(
			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,
			database.NewPostgres,

			// Initialize Repository
			audit.NewAuditRepository,
			contact.NewContactRepository,
			sync.NewLinkRepository,
			sync.NewConflictLogRepository,
			sync.NewSyncLogRepository,

			// Initialize Service
			audit.NewAuditService,
			contact.NewContactService,
			integration.NewClient,
			provisioning.DefaultProvisioners,
			provisioning.NewProvisioningService,
			provisioning.NewScheduler,
			sync.NewBookkeeper,
			system.NewHub,

			// Interface Adapters
			func(h *system.Hub) common_models.EventPublisher { return h },
			func(s contact.ContactService) sync.ContactStore { return s },
			func(s contact.ContactService) provisioning.CustomerLister { return s },

			// Initialize Controller
			audit.NewAuditController,
			contact.NewContactController,
			provisioning.NewProvisioningController,
			sync.NewSyncController,
			system.NewWebSocketController,

			// Initialize API Routes
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(contact.NewContactApi),
			AsRoute(provisioning.NewProvisioningApi),
			AsRoute(sync.NewSyncApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartScheduler,
			InitializeIndexes,
		),
	)

	app.Run()
}
