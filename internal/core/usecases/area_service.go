package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/ports"
	"github.com/samirrijal/osm2svg/internal/pkg/metrics"
)

// AreaService renders areas that first have to be fetched from a remote
// source. It backs the broker consumer and the durable workflow.
type AreaService struct {
	fetcher ports.SourceFetcher
	render  *RenderService
	events  ports.EventPublisher
}

// NewAreaService creates a new AreaService. events may be nil.
func NewAreaService(fetcher ports.SourceFetcher, render *RenderService, events ports.EventPublisher) *AreaService {
	return &AreaService{fetcher: fetcher, render: render, events: events}
}

// NewRequest validates box and builds a render request for it.
func NewRequest(box domain.Box, keys []string, name string) (*domain.RenderRequest, error) {
	if _, err := domain.NewGeoBounds(box); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if !IsClassifyingKey(k) {
			return nil, fmt.Errorf("key %q is not a classifying key", k)
		}
	}
	return &domain.RenderRequest{
		ID:          uuid.NewString(),
		Box:         box,
		Keys:        keys,
		Name:        name,
		RequestedAt: time.Now().UTC(),
	}, nil
}

// Request publishes req for asynchronous rendering.
func (s *AreaService) Request(ctx context.Context, req *domain.RenderRequest) error {
	if s.events == nil {
		return errors.New("no event publisher configured")
	}
	return s.events.PublishRenderRequest(ctx, req)
}

// Fetch retrieves the extract for req and returns its path.
func (s *AreaService) Fetch(ctx context.Context, req *domain.RenderRequest) (string, error) {
	start := time.Now()
	path, err := s.fetcher.Fetch(ctx, req.Box, req.Keys)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.FetchDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", req.Box, err)
	}
	return path, nil
}

// RenderFile renders a fetched extract with the request's bounds.
func (s *AreaService) RenderFile(ctx context.Context, path string, req *domain.RenderRequest) (*RenderOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extract: %w", err)
	}
	box := req.Box
	return s.render.Render(ctx, RenderInput{
		Source: path,
		Data:   data,
		Box:    &box,
		Name:   req.Name,
	})
}

// Handle fetches and renders req and publishes the outcome. Failures caused
// by the request itself are reported in the completion event and not
// returned, so the request is not redelivered.
func (s *AreaService) Handle(ctx context.Context, req *domain.RenderRequest) error {
	log := slog.With("request_id", req.ID, "bbox", req.Box.String())

	path, err := s.Fetch(ctx, req)
	if err != nil {
		metrics.EventsProcessed.WithLabelValues("fetch_error").Inc()
		return err
	}

	out, err := s.RenderFile(ctx, path, req)
	if err != nil {
		if !domain.IsInputError(err) {
			metrics.EventsProcessed.WithLabelValues("error").Inc()
			return err
		}
		log.Warn("render request rejected", "stage", domain.StageOf(err), "error", err)
		metrics.EventsProcessed.WithLabelValues("rejected").Inc()
		return s.publish(ctx, &domain.RenderCompleted{RequestID: req.ID, Error: err.Error()})
	}

	log.Info("render request done", "render_id", out.Record.ID, "cached", out.Cached)
	metrics.EventsProcessed.WithLabelValues("ok").Inc()
	return s.publish(ctx, &domain.RenderCompleted{
		RequestID: req.ID,
		RenderID:  out.Record.ID,
		Summary:   out.Record.Summary,
	})
}

func (s *AreaService) publish(ctx context.Context, ev *domain.RenderCompleted) error {
	if s.events == nil {
		return nil
	}
	if err := s.events.PublishRenderCompleted(ctx, ev); err != nil {
		slog.Warn("publish render completed failed", "request_id", ev.RequestID, "error", err)
	}
	return nil
}
