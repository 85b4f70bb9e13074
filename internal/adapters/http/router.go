package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/osm2svg/internal/pkg/metrics"
)

const (
	defaultRateLimit = 120
	queryTimeout     = 15 * time.Second
	renderTimeout    = 60 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	rate := deps.RateLimit
	if rate <= 0 {
		rate = defaultRateLimit
	}
	app.Use(limiter.New(limiter.Config{
		Max:        rate,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			// Probes and scrapes are never limited.
			return quietPaths[c.Path()]
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Post("/render", timeout.NewWithContext(RenderHandler(deps), renderTimeout))
	v1.Post("/render-requests", timeout.NewWithContext(RenderRequestHandler(deps), queryTimeout))
	v1.Get("/renders", timeout.NewWithContext(ListRendersHandler(deps), queryTimeout))
	v1.Get("/renders/:id", timeout.NewWithContext(GetRenderHandler(deps), queryTimeout))
	v1.Get("/renders/:id/svg", timeout.NewWithContext(RenderSVGHandler(deps), queryTimeout))
	v1.Get("/projection", ProjectionHandler())
	v1.Get("/bounds", BoundsHandler())
	v1.Get("/layers", LayersHandler())

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	// Completion events for queued render requests
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/renders", websocket.New(WebSocketHandler(deps.NATS)))
}
