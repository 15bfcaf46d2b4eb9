// Package server assembles the HTTP API.
package server

import (
	"log/slog"
	"strings"
	"time"

	"labstock-backend/internal/audit"
	"labstock-backend/internal/auth"
	"labstock-backend/internal/catalog"
	"labstock-backend/internal/config"
	"labstock-backend/internal/history"
	"labstock-backend/internal/inventory"
	"labstock-backend/internal/ledger"
	"labstock-backend/internal/models"
	"labstock-backend/internal/store"
	"labstock-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// SessionIdleTimeout is how long an untouched scan session is kept.
const SessionIdleTimeout = 2 * time.Hour

// New wires the services on top of backend and returns the fiber app.
func New(cfg *config.Config, backend store.Backend, log *slog.Logger) *fiber.App {
	cat := catalog.New(backend)
	hist := history.New(backend, cfg.Location())
	led := ledger.New(backend, hist, log)
	scans := inventory.ScanHandlers{
		Workflow: workflow.New(cat, led, log),
		Sessions: workflow.NewSessions(SessionIdleTimeout),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler(log),
		BodyLimit:    8 << 20,
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,OPTIONS",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "backend": cfg.Backend})
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(backend))
	api.Post("/auth/login", auth.LoginHandler(cfg, backend))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())
	protected.Post("/auth/admin-unlock", auth.AdminUnlockHandler(cfg))

	protected.Get("/products", inventory.ListProductsHandler(cat))
	protected.Get("/products/:code", inventory.GetProductHandler(cat))

	protected.Post("/scan-sessions", scans.Create())
	protected.Get("/scan-sessions/:id", scans.Get())
	protected.Post("/scan-sessions/:id/code", scans.Offer())
	protected.Post("/scan-sessions/:id/confirm", scans.Confirm())
	protected.Post("/scan-sessions/:id/reset", scans.Reset())

	protected.Post("/misc-uses", inventory.MiscUseHandler(led))

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))
	adminRoutes.Use(audit.Middleware(log))

	adminRoutes.Post("/products", inventory.CreateProductHandler(cat))
	adminRoutes.Post("/products/import", inventory.ImportProductsHandler(cat))
	adminRoutes.Put("/products/:id", inventory.UpdateProductHandler(cat))
	adminRoutes.Post("/products/:id/adjust", inventory.AdjustStockHandler(led))
	adminRoutes.Put("/products/:id/stock", inventory.SetStockHandler(led))
	adminRoutes.Get("/products/:id/label-link", inventory.LabelLinkHandler(cfg, cat))

	adminRoutes.Get("/history", inventory.ListHistoryHandler(hist))
	adminRoutes.Get("/history/export", inventory.ExportHistoryHandler(hist))

	return app
}
