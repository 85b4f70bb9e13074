package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/osm2svg/internal/core/domain"
	"github.com/samirrijal/osm2svg/internal/core/ports"
	"github.com/samirrijal/osm2svg/internal/core/usecases"
)

// ErrTypeInput marks activity failures caused by the request itself. They
// are never retried.
const ErrTypeInput = "InputError"

// Activity names, as registered by RenderActivities.
const (
	ActivityFetchExtract     = "FetchExtract"
	ActivityRenderExtract    = "RenderExtract"
	ActivityPublishCompleted = "PublishCompleted"
)

// RenderActivities holds the activity implementations for the
// fetch-and-render workflow. Events may be nil.
type RenderActivities struct {
	Areas  *usecases.AreaService
	Events ports.EventPublisher
}

// FetchExtract downloads the extract for req, or reuses a previous download,
// and returns its path on the worker's disk.
func (a *RenderActivities) FetchExtract(ctx context.Context, req domain.RenderRequest) (string, error) {
	info := activity.GetInfo(ctx)
	slog.InfoContext(ctx, "fetching extract",
		"request_id", req.ID, "bbox", req.Box.String(), "attempt", info.Attempt)

	return a.Areas.Fetch(ctx, &req)
}

// RenderExtract converts the extract at path and returns the completion
// notice for req.
func (a *RenderActivities) RenderExtract(ctx context.Context, path string, req domain.RenderRequest) (domain.RenderCompleted, error) {
	out, err := a.Areas.RenderFile(ctx, path, &req)
	if err != nil {
		if domain.IsInputError(err) {
			return domain.RenderCompleted{}, temporal.NewNonRetryableApplicationError(
				err.Error(), ErrTypeInput, err, domain.StageOf(err))
		}
		return domain.RenderCompleted{}, fmt.Errorf("render %s: %w", path, err)
	}
	return domain.RenderCompleted{
		RequestID: req.ID,
		RenderID:  out.Record.ID,
		Summary:   out.Record.Summary,
	}, nil
}

// PublishCompleted announces a finished request.
func (a *RenderActivities) PublishCompleted(ctx context.Context, ev domain.RenderCompleted) error {
	if a.Events == nil {
		return nil
	}
	return a.Events.PublishRenderCompleted(ctx, &ev)
}
