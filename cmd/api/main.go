package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/osm2svg/internal/adapters/http"
	natsadapter "github.com/samirrijal/osm2svg/internal/adapters/nats"
	"github.com/samirrijal/osm2svg/internal/adapters/osmfetch"
	"github.com/samirrijal/osm2svg/internal/adapters/osmxml"
	"github.com/samirrijal/osm2svg/internal/adapters/postgres"
	"github.com/samirrijal/osm2svg/internal/adapters/svg"
	"github.com/samirrijal/osm2svg/internal/adapters/valkey"
	"github.com/samirrijal/osm2svg/internal/core/ports"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
	"github.com/samirrijal/osm2svg/internal/pkg/config"
	"github.com/samirrijal/osm2svg/internal/pkg/logging"
	"github.com/samirrijal/osm2svg/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("osm2svg-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{
		RateLimit: cfg.Server.RateLimit,
		Version:   version,
	}

	// Database. Without it uploads still convert, but nothing is kept.
	var renders ports.RenderRepository
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Warn("database unavailable, render history disabled", "error", err)
	} else {
		defer db.Close()
		deps.DB = db
		renders = postgres.NewRenderRepo(db)
	}

	// Cache
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr, "osm2svg:")
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		deps.Cache = vc
		cache = vc
	}

	// NATS
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, render requests disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
		deps.NATS = natsConn
	}

	// Use cases
	renderSvc := usecases.NewRenderService(
		osmxml.NewDecoder(),
		svg.NewEncoder("  "),
		renders,
		cache,
		usecases.RenderOptions{CacheTTL: cfg.Render.CacheTTL, StoreSVG: cfg.Render.StoreSVG},
	)
	deps.Renders = renderSvc
	if events != nil {
		fetcher := osmfetch.New(cfg.Fetch.BaseURL, cfg.Fetch.Dir, cfg.Fetch.Timeout)
		deps.Areas = usecases.NewAreaService(fetcher, renderSvc, events)
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		AppName:      "osm2svg API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		ExposeHeaders:    "X-Render-ID, X-Canvas-Width, X-Canvas-Height, X-Layer-Count, X-Render-Cached, Link",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "version", version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight renders up to 30s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
