package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/intime-labs/intime/internal/access"
	"github.com/intime-labs/intime/internal/auth"
	"github.com/intime-labs/intime/internal/config"
	"github.com/intime-labs/intime/internal/identity"
	"github.com/intime-labs/intime/internal/ledger"
	"github.com/intime-labs/intime/internal/logging"
	"github.com/intime-labs/intime/internal/middleware"
	"github.com/intime-labs/intime/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Clock overrides the ledger clock; nil means wall time.
	Clock ledger.Clock
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	policy, err := ledger.ParsePolicy(d.Cfg.MintPolicy)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stores
	var (
		ledgerStore  ledger.Store
		roleStore    access.Store
		identityRepo identity.Repository
	)
	if d.DB != nil {
		pgLedger := ledger.NewPostgresStore(d.DB)
		pgRoles := access.NewPostgresStore(d.DB)
		pgUsers := identity.NewPostgresRepository(d.DB)
		for _, m := range []migrator{pgLedger, pgRoles, pgUsers} {
			if err := m.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		ledgerStore, roleStore, identityRepo = pgLedger, pgRoles, pgUsers
	} else {
		ledgerStore = ledger.NewMemoryStore()
		roleStore = access.NewMemoryStore()
		identityRepo = identity.NewMemoryRepository()
	}

	roles, err := access.NewRegistry(ctx, roleStore)
	if err != nil {
		return err
	}
	if d.Cfg.AdminAccount != "" {
		granted, err := roles.Bootstrap(ctx, d.Cfg.AdminAccount)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if granted {
			d.Logger.Info("bootstrapped ledger admin", slog.String("account", d.Cfg.AdminAccount))
		}
	}

	notifiers := notification.Multi{notification.NewLoggerNotifier(d.Logger)}
	if d.Cache != nil {
		notifiers = append(notifiers, notification.NewRedisNotifier(d.Cache, notification.DefaultChannel))
	}

	engine, err := ledger.NewEngine(ctx, ledger.EngineConfig{
		Store:    ledgerStore,
		Roles:    roles,
		Clock:    d.Clock,
		Rate:     d.Cfg.DecayRate,
		Policy:   policy,
		Notifier: notifiers,
		Logger:   d.Logger,
	})
	if err != nil {
		return err
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	ledgerHandler := ledger.NewHandler(engine)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identity.NewHandler(identitySvc, d.Logger))
	RegisterAuthRoutes(api, auth.NewHandler(identitySvc, authSvc), middleware.LoginRateLimit(d.Cache, 5))
	RegisterLedgerReadRoutes(api, ledgerHandler)

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(authSvc))
	RegisterProfileRoute(protected, identityRepo)
	RegisterLedgerRoutes(protected, ledgerHandler)
	RegisterRoleRoutes(protected, access.NewHandler(roles))

	return nil
}
