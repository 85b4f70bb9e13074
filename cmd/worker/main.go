// Command worker runs the durable fetch-and-render workflow on Temporal.
package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/osm2svg/internal/adapters/nats"
	"github.com/samirrijal/osm2svg/internal/adapters/osmfetch"
	"github.com/samirrijal/osm2svg/internal/adapters/osmxml"
	"github.com/samirrijal/osm2svg/internal/adapters/postgres"
	"github.com/samirrijal/osm2svg/internal/adapters/svg"
	"github.com/samirrijal/osm2svg/internal/core/ports"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
	"github.com/samirrijal/osm2svg/internal/pkg/config"
	"github.com/samirrijal/osm2svg/internal/pkg/logging"
	"github.com/samirrijal/osm2svg/internal/workflows"
)

func main() {
	cfg, err := config.Load("osm2svg-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	db, err := postgres.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Completion events are optional; the workflow result carries the same data.
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, completions not published", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	renders := usecases.NewRenderService(
		osmxml.NewDecoder(),
		svg.NewEncoder("  "),
		postgres.NewRenderRepo(db),
		nil,
		usecases.RenderOptions{StoreSVG: cfg.Render.StoreSVG},
	)
	fetcher := osmfetch.New(cfg.Fetch.BaseURL, cfg.Fetch.Dir, cfg.Fetch.Timeout)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.FetchAndRenderWorkflow)
	w.RegisterActivity(&workflows.RenderActivities{
		// Completions go out through the PublishCompleted activity.
		Areas:  usecases.NewAreaService(fetcher, renders, nil),
		Events: events,
	})

	slog.Info("render workflow worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
