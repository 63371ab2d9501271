package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thenielthevis/capstone-project-sub006/internal/application/dto"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/service"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/valueobject"
	"github.com/thenielthevis/capstone-project-sub006/pkg/events"
)

var tracer = otel.Tracer("github.com/thenielthevis/capstone-project-sub006/internal/application/usecase")

// Request outcomes reported to the metrics recorder.
const (
	OutcomeCached           = "cached"
	OutcomeComputed         = "computed"
	OutcomeUnpersisted      = "unpersisted"
	OutcomeValidationFailed = "validation_failed"
	OutcomeEmpty            = "empty"
	OutcomeUserNotFound     = "user_not_found"
	OutcomeNoPredictions    = "no_predictions"
	OutcomeError            = "error"
)

// WarningAllFiltered is reported when ranking removed every prediction.
const WarningAllFiltered = "no prediction reached the display threshold"

// GetOrCreatePredictionDeps groups the collaborators of GetOrCreatePrediction.
// Store, Inference and Clock are required; the rest fall back to no-ops.
type GetOrCreatePredictionDeps struct {
	Store        port.PredictionStore
	Inference    port.InferenceClient
	Clock        port.Clock
	Publisher    port.EventPublisher
	Guard        port.ComputeGuard
	Scheduler    port.EnrichmentScheduler
	Metrics      port.MetricsRecorder
	Labels       *service.LabelTable
	Logger       *slog.Logger
	Placeholders []string
}

// GetOrCreatePrediction is the use case that returns a user's risk predictions,
// running inference when the cached set is missing, stale or overridden.
type GetOrCreatePrediction struct {
	store        port.PredictionStore
	inference    port.InferenceClient
	clock        port.Clock
	publisher    port.EventPublisher
	guard        port.ComputeGuard
	scheduler    port.EnrichmentScheduler
	metrics      port.MetricsRecorder
	logger       *slog.Logger
	decider      *service.FreshnessDecider
	builder      *service.FeatureVectorBuilder
	normalizer   *service.ResultNormalizer
	ranker       *service.HybridRanker
	placeholders []string
}

// NewGetOrCreatePrediction creates a new GetOrCreatePrediction use case.
func NewGetOrCreatePrediction(deps GetOrCreatePredictionDeps) *GetOrCreatePrediction {
	uc := &GetOrCreatePrediction{
		store:        deps.Store,
		inference:    deps.Inference,
		clock:        deps.Clock,
		publisher:    deps.Publisher,
		guard:        deps.Guard,
		scheduler:    deps.Scheduler,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		decider:      service.NewFreshnessDecider(deps.Clock),
		builder:      service.NewFeatureVectorBuilder(),
		normalizer:   service.NewResultNormalizer(deps.Labels),
		ranker:       service.NewHybridRanker(),
		placeholders: deps.Placeholders,
	}
	if uc.guard == nil {
		uc.guard = directGuard{}
	}
	if uc.metrics == nil {
		uc.metrics = NopMetrics{}
	}
	if uc.logger == nil {
		uc.logger = slog.Default()
	}
	if uc.placeholders == nil {
		uc.placeholders = service.DefaultDescriptionPlaceholders
	}
	return uc
}

// Execute decides freshness, computes when needed, and schedules description
// enrichment after the response is assembled.
func (uc *GetOrCreatePrediction) Execute(ctx context.Context, req dto.GetOrCreatePredictionRequest) (dto.PredictionResponse, error) {
	ctx, span := tracer.Start(ctx, "GetOrCreatePrediction", trace.WithAttributes(
		attribute.String("user.id", req.UserID.String()),
		attribute.Bool("prediction.force", req.ForceRegenerate),
		attribute.Bool("prediction.read_only", req.ReadOnly),
	))
	defer span.End()

	resp, err := uc.execute(ctx, req)
	outcome := outcomeOf(resp, err)
	uc.metrics.RequestServed(ctx, outcome)
	span.SetAttributes(attribute.String("prediction.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return resp, err
}

func (uc *GetOrCreatePrediction) execute(ctx context.Context, req dto.GetOrCreatePredictionRequest) (dto.PredictionResponse, error) {
	// 1. Load the user record.
	record, err := uc.store.FindByID(ctx, req.UserID)
	if err != nil {
		return dto.PredictionResponse{}, fmt.Errorf("failed to load user %s: %w", req.UserID, err)
	}

	// 2. Decide whether the cached set can answer the request.
	decision := uc.decider.Decide(record.CachedPredictions(), service.FreshnessRequest{
		ForceRegenerate: req.ForceRegenerate,
		ReadOnly:        req.ReadOnly,
	})
	switch {
	case decision.Equal(valueobject.DecisionNotFound):
		return dto.PredictionResponse{}, fmt.Errorf("%w for user %s", model.ErrNoPredictionsAvailable, req.UserID)
	case decision.Equal(valueobject.DecisionReturnCached):
		return cachedResponse(record.CachedPredictions()), nil
	}

	// 3. Compute once per user among concurrent callers.
	v, _, err := uc.guard.Do(ctx, req.UserID.String(), func(ctx context.Context) (any, error) {
		return uc.compute(ctx, req)
	})
	if err != nil {
		return dto.PredictionResponse{}, err
	}
	resp, ok := v.(dto.PredictionResponse)
	if !ok {
		return dto.PredictionResponse{}, fmt.Errorf("unexpected compute result type %T", v)
	}
	return resp, nil
}

// compute runs with the per-user guard held. The record is read again so a
// caller that waited behind another computation returns its stored result.
// Enrichment is scheduled here, once per stored set, whether or not any
// caller is still waiting.
func (uc *GetOrCreatePrediction) compute(ctx context.Context, req dto.GetOrCreatePredictionRequest) (dto.PredictionResponse, error) {
	record, err := uc.store.FindByID(ctx, req.UserID)
	if err != nil {
		return dto.PredictionResponse{}, fmt.Errorf("failed to reload user %s: %w", req.UserID, err)
	}
	decision := uc.decider.Decide(record.CachedPredictions(), service.FreshnessRequest{ForceRegenerate: req.ForceRegenerate})
	if decision.Equal(valueobject.DecisionReturnCached) {
		return cachedResponse(record.CachedPredictions()), nil
	}

	// 1. Build the feature vector.
	features := uc.builder.Build(record.Profile())

	// 2. Run inference.
	raw, err := uc.infer(ctx, features)
	if err != nil {
		return dto.PredictionResponse{}, fmt.Errorf("inference failed for user %s: %w", req.UserID, err)
	}

	// 3. Decode and normalize.
	payload, err := service.DecodePayload(raw)
	if err != nil {
		return dto.PredictionResponse{}, fmt.Errorf("failed to decode inference output for user %s: %w", req.UserID, err)
	}
	normalized, warnings := uc.normalizer.Normalize(payload)
	if len(warnings) > 0 {
		uc.logger.Warn("inference output normalized with warnings",
			"user_id", req.UserID,
			"shape", service.ShapeOf(payload),
			"warnings", warnings,
		)
	}

	predictedAt := uc.clock.Now()

	// 4. Merge declared conditions and check every entry before filtering.
	merged := uc.ranker.MergeReportedConditions(normalized, record.Profile().ReportedConditions())
	if err := model.ValidateEntries(merged); err != nil {
		return uc.rejectInvalid(req.UserID, uc.ranker.Order(merged), predictedAt, warnings, err), nil
	}

	// 5. Rank and filter.
	ranked := uc.ranker.Rank(merged)
	if len(ranked) == 0 && len(merged) > 0 {
		warnings = append(warnings, WarningAllFiltered)
	}

	// 6. Persist; failures here are downgraded.
	resp, task := uc.persist(ctx, record, ranked, predictedAt, warnings)

	// 7. Hand enrichment to the background worker; never awaited.
	if task != nil {
		uc.scheduleEnrichment(*task)
	}
	return resp, nil
}

func (uc *GetOrCreatePrediction) infer(ctx context.Context, features model.FeatureVector) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "InferenceProcedure")
	defer span.End()

	start := time.Now()
	raw, err := uc.inference.Infer(ctx, features)
	uc.metrics.InferenceObserved(ctx, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return raw, err
}

// rejectInvalid answers with the computed predictions flagged and writes
// nothing.
func (uc *GetOrCreatePrediction) rejectInvalid(userID uuid.UUID, predictions []model.RiskPrediction, predictedAt time.Time, warnings []string, err error) dto.PredictionResponse {
	uc.logger.Warn("computed predictions failed validation, skipping write",
		"user_id", userID,
		"error", err,
	)
	resp := computedResponse(predictions, predictedAt, warnings)
	resp.ValidationFailed = true
	return resp
}

// persist stores a ranked list and returns the response together with the
// enrichment task for the stored set, or nil when nothing was stored.
func (uc *GetOrCreatePrediction) persist(ctx context.Context, record *model.UserPredictionRecord, ranked []model.RiskPrediction, predictedAt time.Time, warnings []string) (dto.PredictionResponse, *port.EnrichmentTask) {
	userID := record.UserID()

	if len(ranked) == 0 {
		uc.logger.Warn("no predictions to store, skipping write", "user_id", userID)
		return computedResponse(ranked, predictedAt, warnings), nil
	}

	set, err := model.NewCachedPredictionSet(ranked, predictedAt)
	if err != nil {
		return uc.rejectInvalid(userID, ranked, predictedAt, warnings, err), nil
	}

	stored, err := uc.store.ReplacePredictions(ctx, userID, set)
	if err != nil {
		uc.metrics.PersistenceFailed(ctx, "replace_predictions")
		uc.logger.Error("failed to persist predictions, returning unpersisted result",
			"user_id", userID,
			"error", err,
		)
		resp := dto.FromCachedSet(set)
		resp.Warnings = warnings
		return resp, nil
	}

	if err := record.ReplacePredictions(stored); err != nil {
		uc.logger.Warn("stored prediction set not applied to record", "user_id", userID, "error", err)
	}
	uc.publish(ctx, record.DomainEvents())

	resp := dto.FromCachedSet(stored)
	resp.Persisted = true
	resp.Warnings = warnings
	return resp, &port.EnrichmentTask{
		UserID:      userID,
		PredictedAt: stored.PredictedAt,
		Predictions: append([]model.RiskPrediction(nil), stored.Predictions...),
	}
}

func (uc *GetOrCreatePrediction) publish(ctx context.Context, evts []events.DomainEvent) {
	if uc.publisher == nil || len(evts) == 0 {
		return
	}
	if err := uc.publisher.Publish(ctx, evts...); err != nil {
		uc.logger.Warn("failed to publish prediction events", "count", len(evts), "error", err)
	}
}

func (uc *GetOrCreatePrediction) scheduleEnrichment(task port.EnrichmentTask) {
	if uc.scheduler == nil {
		return
	}
	needed := false
	for _, p := range task.Predictions {
		if p.NeedsDescription(uc.placeholders) {
			needed = true
			break
		}
	}
	if !needed {
		return
	}
	if !uc.scheduler.Schedule(task) {
		uc.logger.Warn("description enrichment dropped", "user_id", task.UserID)
	}
}

func cachedResponse(set *model.CachedPredictionSet) dto.PredictionResponse {
	resp := dto.FromCachedSet(set)
	resp.Cached = true
	resp.Persisted = true
	return resp
}

func computedResponse(ranked []model.RiskPrediction, predictedAt time.Time, warnings []string) dto.PredictionResponse {
	resp := dto.PredictionResponse{
		Predictions:  dto.FromPredictions(ranked),
		DiseaseNames: model.DiseaseNames(ranked),
		PredictedAt:  predictedAt,
		Source:       model.SetSourceOf(ranked),
		Warnings:     warnings,
	}
	if len(ranked) > 0 {
		resp.TopProbability = ranked[0].Probability
	}
	return resp
}

func outcomeOf(resp dto.PredictionResponse, err error) string {
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return OutcomeUserNotFound
	case errors.Is(err, model.ErrNoPredictionsAvailable):
		return OutcomeNoPredictions
	case err != nil:
		return OutcomeError
	case resp.Cached:
		return OutcomeCached
	case resp.ValidationFailed:
		return OutcomeValidationFailed
	case len(resp.Predictions) == 0:
		return OutcomeEmpty
	case !resp.Persisted:
		return OutcomeUnpersisted
	default:
		return OutcomeComputed
	}
}

// directGuard runs every computation without deduplication.
type directGuard struct{}

func (directGuard) Do(ctx context.Context, _ string, fn func(context.Context) (any, error)) (any, bool, error) {
	v, err := fn(ctx)
	return v, false, err
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RequestServed(context.Context, string)                   {}
func (NopMetrics) InferenceObserved(context.Context, time.Duration, error) {}
func (NopMetrics) PersistenceFailed(context.Context, string)               {}
func (NopMetrics) EnrichmentFinished(context.Context, string)              {}
