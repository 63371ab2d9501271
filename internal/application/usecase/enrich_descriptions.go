package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thenielthevis/capstone-project-sub006/internal/application/dto"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/event"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/service"
)

// Enrichment outcomes reported to the metrics recorder.
const (
	EnrichmentSucceeded = "succeeded"
	EnrichmentSkipped   = "skipped"
	EnrichmentFailed    = "failed"
	EnrichmentDropped   = "dropped"
)

// EnrichDescriptions is the background use case that backfills missing
// prediction descriptions.
type EnrichDescriptions struct {
	store        port.PredictionStore
	generator    port.DescriptionGenerator
	publisher    port.EventPublisher
	clock        port.Clock
	metrics      port.MetricsRecorder
	logger       *slog.Logger
	placeholders []string
	timeout      time.Duration
}

// NewEnrichDescriptions creates a new EnrichDescriptions use case. timeout
// bounds each call to the description generator; zero means no extra bound.
func NewEnrichDescriptions(
	store port.PredictionStore,
	generator port.DescriptionGenerator,
	publisher port.EventPublisher,
	clock port.Clock,
	metrics port.MetricsRecorder,
	logger *slog.Logger,
	placeholders []string,
	timeout time.Duration,
) *EnrichDescriptions {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if placeholders == nil {
		placeholders = service.DefaultDescriptionPlaceholders
	}
	return &EnrichDescriptions{
		store:        store,
		generator:    generator,
		publisher:    publisher,
		clock:        clock,
		metrics:      metrics,
		logger:       logger,
		placeholders: placeholders,
		timeout:      timeout,
	}
}

// Execute generates descriptions for the entries lacking one, applies them
// to req.Predictions, and writes only the description fields back. Errors
// wrap model.ErrEnrichment.
func (uc *EnrichDescriptions) Execute(ctx context.Context, req dto.EnrichDescriptionsRequest) (dto.EnrichDescriptionsResponse, error) {
	// 1. Select the entries that need a description.
	names := uc.missing(req.Predictions)
	resp := dto.EnrichDescriptionsResponse{Requested: names}
	if len(names) == 0 {
		return resp, nil
	}

	// 2. Ask the generator, under its own deadline.
	genCtx := ctx
	if uc.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, uc.timeout)
		defer cancel()
	}
	generated, err := uc.generator.Describe(genCtx, names)
	if err != nil {
		return resp, fmt.Errorf("%w: generate descriptions for user %s: %v", model.ErrEnrichment, req.UserID, err)
	}

	descriptions := make(map[string]string, len(names))
	for _, name := range names {
		if d := strings.TrimSpace(generated[name]); d != "" {
			descriptions[name] = d
		}
	}
	if len(descriptions) == 0 {
		return resp, nil
	}

	// 3. Apply to the task's own predictions.
	for i := range req.Predictions {
		if d, ok := descriptions[req.Predictions[i].Name]; ok {
			req.Predictions[i].Description = d
			resp.Described = append(resp.Described, req.Predictions[i].Name)
		}
	}

	// 4. Targeted write of the description fields.
	updated, err := uc.store.UpdateDescriptions(ctx, req.UserID, descriptions)
	if err != nil {
		return resp, fmt.Errorf("%w: update descriptions for user %s: %v", model.ErrEnrichment, req.UserID, err)
	}
	resp.Updated = updated

	// 5. Publish the enrichment event.
	if updated > 0 && uc.publisher != nil {
		evt := event.NewDescriptionsEnriched(req.UserID, resp.Described, req.PredictedAt, uc.clock.Now())
		if err := uc.publisher.Publish(ctx, evt); err != nil {
			uc.logger.Warn("failed to publish enrichment event", "user_id", req.UserID, "error", err)
		}
	}
	return resp, nil
}

// Handle runs one scheduled task. Failures are logged and counted here and
// never reach a caller.
func (uc *EnrichDescriptions) Handle(ctx context.Context, task port.EnrichmentTask) {
	resp, err := uc.Execute(ctx, dto.EnrichDescriptionsRequest{
		UserID:      task.UserID,
		PredictedAt: task.PredictedAt,
		Predictions: task.Predictions,
	})
	switch {
	case err != nil:
		uc.metrics.EnrichmentFinished(ctx, EnrichmentFailed)
		uc.logger.Error("description enrichment failed", "user_id", task.UserID, "error", err)
	case resp.Updated == 0:
		uc.metrics.EnrichmentFinished(ctx, EnrichmentSkipped)
		uc.logger.Debug("description enrichment changed nothing",
			"user_id", task.UserID,
			"requested", len(resp.Requested),
		)
	default:
		uc.metrics.EnrichmentFinished(ctx, EnrichmentSucceeded)
		uc.logger.Info("descriptions enriched",
			"user_id", task.UserID,
			"updated", resp.Updated,
		)
	}
}

func (uc *EnrichDescriptions) missing(predictions []model.RiskPrediction) []string {
	seen := make(map[string]struct{}, len(predictions))
	var names []string
	for _, p := range predictions {
		if !p.NeedsDescription(uc.placeholders) {
			continue
		}
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		names = append(names, p.Name)
	}
	return names
}
