package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pasarlink/pasarlink/internal/config"
	"github.com/pasarlink/pasarlink/internal/identity"
	"github.com/pasarlink/pasarlink/internal/inventory"
	"github.com/pasarlink/pasarlink/internal/middleware"
	"github.com/pasarlink/pasarlink/internal/notification"
	"github.com/pasarlink/pasarlink/internal/order"
	"github.com/pasarlink/pasarlink/internal/refund"
	"github.com/pasarlink/pasarlink/internal/settlement"
	"github.com/pasarlink/pasarlink/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. It returns the
// settlement runner so main can start the periodic job alongside the server.
func Setup(app *fiber.App, d Deps) (*settlement.Runner, error) {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
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

	// Backing stores: Postgres in deployed environments, memory for local runs.
	var walletStore wallet.Store
	var orderStore order.Store
	var refundRepo refund.Repository
	var stock inventory.Adjuster
	var feeStore settlement.FeeStore
	if d.DB != nil {
		walletStore = wallet.NewPostgresStore(d.DB)
		orderStore = order.NewPostgresStore(d.DB)
		refundRepo = refund.NewPostgresRepository(d.DB)
		stock = inventory.NewPostgresAdjuster(d.DB)
		feeStore = settlement.NewPostgresFeeStore(d.DB)
	} else {
		walletStore = wallet.NewMemoryStore()
		orderStore = order.NewMemoryStore()
		refundRepo = refund.NewMemoryRepository()
		stock = inventory.NewMemoryAdjuster()
		feeStore = settlement.NewMemoryFeeStore()
	}

	// Services and handlers
	walletSvc := wallet.NewService(walletStore)
	notifier := notification.NewLoggerNotifier(d.Logger)
	resolver := identity.NewOrderResolver(orderStore, d.Cfg.PlatformOwnerID)

	var gateway refund.Gateway
	if d.Cfg.MidtransServerKey != "" {
		gateway = refund.NewMidtransGateway(d.Cfg.MidtransServerKey, d.Cfg.MidtransProduction)
	}
	refundSvc := refund.NewService(refundRepo, orderStore, stock, walletSvc, gateway, notifier, d.Logger)

	settlementSvc := settlement.NewService(orderStore, settlement.NewRecordedFeePolicy(feeStore), walletSvc, resolver, notifier, d.Logger)
	runner := settlement.NewRunner(settlementSvc, d.Cache, d.Cfg.SettlementInterval, d.Cfg.ReturnPeriodDays, d.Logger)

	walletHandler := wallet.NewHandler(walletSvc)
	refundHandler := refund.NewHandler(refundSvc)
	settlementHandler := settlement.NewHandler(runner)

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

	RegisterWalletRoutes(api, walletHandler)
	refundLimiter := middleware.RateLimit(d.Cache, 5, "refund-open")
	RegisterRefundRoutes(api, refundHandler, refundLimiter)
	RegisterSettlementRoutes(api, settlementHandler)

	return runner, nil
}
