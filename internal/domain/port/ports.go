package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/pkg/events"
)

// PredictionStore is the persistence port over the user document that owns
// the cached prediction set.
type PredictionStore interface {
	// FindByID loads the user's profile and cached predictions.
	// It returns model.ErrUserNotFound when the user does not exist.
	FindByID(ctx context.Context, userID uuid.UUID) (*model.UserPredictionRecord, error)

	// ReplacePredictions atomically overwrites the cached set and returns
	// the set as stored.
	ReplacePredictions(ctx context.Context, userID uuid.UUID, set *model.CachedPredictionSet) (*model.CachedPredictionSet, error)

	// UpdateDescriptions patches only the description of the named
	// predictions and returns how many entries changed.
	UpdateDescriptions(ctx context.Context, userID uuid.UUID, descriptions map[string]string) (int, error)
}

// InferenceClient runs the external inference procedure.
type InferenceClient interface {
	// Infer returns the raw payload the procedure wrote to stdout.
	Infer(ctx context.Context, features model.FeatureVector) ([]byte, error)
}

// DescriptionGenerator produces human-readable explanations for diseases.
type DescriptionGenerator interface {
	// Describe returns a description per disease name. Names it could not
	// describe are simply absent from the map.
	Describe(ctx context.Context, names []string) (map[string]string, error)
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...events.DomainEvent) error
}

// Clock supplies the current time. The time's location defines the local
// calendar day used for freshness.
type Clock interface {
	Now() time.Time
}

// ComputeGuard collapses concurrent computations for the same key into one.
type ComputeGuard interface {
	// Do runs fn for key unless a call for the same key is already in
	// flight, in which case it waits for and returns that call's result.
	// shared reports whether the result was produced by another caller.
	Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (v any, shared bool, err error)
}

// EnrichmentTask is one unit of background description backfill. It owns its
// copy of the predictions.
type EnrichmentTask struct {
	UserID      uuid.UUID
	PredictedAt time.Time
	Predictions []model.RiskPrediction
}

// EnrichmentScheduler hands tasks to the background enrichment worker.
type EnrichmentScheduler interface {
	// Schedule enqueues the task without blocking. It returns false when
	// the task was dropped.
	Schedule(task EnrichmentTask) bool
}

// MetricsRecorder receives pipeline measurements.
type MetricsRecorder interface {
	RequestServed(ctx context.Context, outcome string)
	InferenceObserved(ctx context.Context, elapsed time.Duration, err error)
	PersistenceFailed(ctx context.Context, operation string)
	EnrichmentFinished(ctx context.Context, outcome string)
}
