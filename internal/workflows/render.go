package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/osm2svg/internal/core/domain"
)

// WorkflowID is the workflow ID used for a request, so that resubmitting the
// same request joins the running workflow.
func WorkflowID(req domain.RenderRequest) string {
	return "render-" + req.ID
}

// FetchAndRenderWorkflow fetches the extract for a request, renders it and
// publishes the outcome. Downloads are retried with backoff; a request whose
// data cannot be converted completes with Error set instead of failing.
func FetchAndRenderWorkflow(ctx workflow.Context, req domain.RenderRequest) (domain.RenderCompleted, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting render workflow", "requestID", req.ID, "bbox", req.Box.String())

	fetchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    2 * time.Minute,
			MaximumAttempts:    5,
		},
	})
	renderCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeInput},
		},
	})
	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	// Step 1: fetch
	var path string
	if err := workflow.ExecuteActivity(fetchCtx, ActivityFetchExtract, req).Get(ctx, &path); err != nil {
		return domain.RenderCompleted{}, err
	}

	// Step 2: render
	var result domain.RenderCompleted
	err := workflow.ExecuteActivity(renderCtx, ActivityRenderExtract, path, req).Get(ctx, &result)
	if err != nil {
		var appErr *temporal.ApplicationError
		if !errors.As(err, &appErr) || appErr.Type() != ErrTypeInput {
			return domain.RenderCompleted{}, err
		}
		logger.Warn("Render request rejected", "requestID", req.ID, "error", appErr.Error())
		result = domain.RenderCompleted{RequestID: req.ID, Error: appErr.Error()}
	}

	// Step 3: announce; the render is already stored, so a failure here only
	// loses the notification.
	if err := workflow.ExecuteActivity(publishCtx, ActivityPublishCompleted, result).Get(ctx, nil); err != nil {
		logger.Warn("Publishing completion failed", "requestID", req.ID, "error", err)
	}

	logger.Info("Render workflow finished", "requestID", req.ID, "renderID", result.RenderID)
	return result, nil
}
