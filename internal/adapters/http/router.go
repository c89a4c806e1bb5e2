package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/navfence/internal/pkg/metrics"
)

const requestTimeout = 5 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	app.Use(AccessLogMiddleware())

	// Rate limiting: 600 requests per minute per IP (editors poll zone state)
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/info", InfoHandler(deps))

	// Zone registry
	v1.Get("/zones", timeout.NewWithContext(ListZonesHandler(deps), requestTimeout))
	v1.Post("/zones", timeout.NewWithContext(CreateZoneHandler(deps), requestTimeout))
	v1.Get("/zones/active", timeout.NewWithContext(ActiveZonesHandler(deps), requestTimeout))
	v1.Get("/zones/:index", timeout.NewWithContext(GetZoneHandler(deps), requestTimeout))
	v1.Delete("/zones/:index", timeout.NewWithContext(DeleteZoneHandler(deps), requestTimeout))
	v1.Patch("/zones/:index", timeout.NewWithContext(RenameZoneHandler(deps), requestTimeout))
	v1.Post("/zones/:index/toggle", timeout.NewWithContext(ToggleZoneHandler(deps), requestTimeout))
	v1.Put("/zones/:index/points", timeout.NewWithContext(SetPointsHandler(deps), requestTimeout))
	v1.Post("/zones/:index/points", timeout.NewWithContext(AppendPointHandler(deps), requestTimeout))
	v1.Delete("/zones/:index/points/:point", timeout.NewWithContext(RemovePointHandler(deps), requestTimeout))

	// Queries against published state
	v1.Get("/breaches", timeout.NewWithContext(BreachesHandler(deps), requestTimeout))
	v1.Get("/bounds/latest", timeout.NewWithContext(LatestBoundsHandler(deps), requestTimeout))

	v1.Post("/publisher/rate", SetRateHandler(deps))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket relay of the boundary channel
	if deps.NATS != nil && deps.Publisher != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS, deps.Publisher.Channel())))
	}
}
