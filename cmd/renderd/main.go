// Command renderd consumes queued render requests from NATS, fetches the
// requested extracts and renders them.
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

	natsadapter "github.com/samirrijal/osm2svg/internal/adapters/nats"
	"github.com/samirrijal/osm2svg/internal/adapters/osmfetch"
	"github.com/samirrijal/osm2svg/internal/adapters/osmxml"
	"github.com/samirrijal/osm2svg/internal/adapters/postgres"
	"github.com/samirrijal/osm2svg/internal/adapters/svg"
	"github.com/samirrijal/osm2svg/internal/adapters/valkey"
	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/ports"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
	"github.com/samirrijal/osm2svg/internal/pkg/config"
	"github.com/samirrijal/osm2svg/internal/pkg/logging"
	"github.com/samirrijal/osm2svg/internal/pkg/metrics"
	"github.com/samirrijal/osm2svg/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("osm2svg-renderd")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr, "osm2svg:")
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer pub.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, 3)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	renders := usecases.NewRenderService(
		osmxml.NewDecoder(),
		svg.NewEncoder("  "),
		postgres.NewRenderRepo(db),
		cache,
		usecases.RenderOptions{CacheTTL: cfg.Render.CacheTTL, StoreSVG: cfg.Render.StoreSVG},
	)
	fetcher := osmfetch.New(cfg.Fetch.BaseURL, cfg.Fetch.Dir, cfg.Fetch.Timeout)
	areas := usecases.NewAreaService(fetcher, renders, pub)

	if err := sub.SubscribeRenderRequests(ctx, areas.Handle); err != nil {
		log.Fatalf("subscribe requests: %v", err)
	}
	if err := sub.SubscribeRenderCompleted(ctx, logCompleted); err != nil {
		log.Fatalf("subscribe completions: %v", err)
	}

	// Metrics and liveness only; requests arrive over NATS.
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "osm2svg renderd",
	})
	app.Get("/metrics", metrics.Handler())
	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.StatusOK
		if !pub.Connected() {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{"nats_connected": pub.Connected()})
	})
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := app.Listen(addr); err != nil {
			slog.Error("metrics listener stopped", "error", err)
		}
	}()

	slog.Info("render worker started", "subject", natsadapter.SubjectRequest, "fetch_dir", cfg.Fetch.Dir)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("received signal, shutting down render worker", "signal", sig.String())
	cancel()
	_ = app.ShutdownWithTimeout(5 * time.Second)
}

func logCompleted(_ context.Context, ev *domain.RenderCompleted) error {
	if ev.Error != "" {
		slog.Info("render request failed", "request_id", ev.RequestID, "error", ev.Error)
		return nil
	}
	slog.Info("render request completed",
		"request_id", ev.RequestID,
		"render_id", ev.RenderID,
		"layers", len(ev.Summary.Layers),
	)
	return nil
}
