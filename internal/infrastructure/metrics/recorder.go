package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
)

// Instrument names as exported through the Prometheus exporter.
const (
	RequestsName            = "prediction.requests"
	InferenceDurationName   = "prediction.inference.duration"
	PersistenceFailuresName = "prediction.persistence.failures"
	EnrichmentsName         = "prediction.enrichments"
	EnrichmentQueueName     = "prediction.enrichment.queue.depth"
)

var _ port.MetricsRecorder = (*Recorder)(nil)

// Recorder implements port.MetricsRecorder with OpenTelemetry instruments.
type Recorder struct {
	meter               metric.Meter
	requests            metric.Int64Counter
	inferenceDuration   metric.Float64Histogram
	persistenceFailures metric.Int64Counter
	enrichments         metric.Int64Counter
}

// NewRecorder creates the instruments on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	requests, err := meter.Int64Counter(RequestsName,
		metric.WithDescription("Prediction requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: %s: %w", RequestsName, err)
	}

	inferenceDuration, err := meter.Float64Histogram(InferenceDurationName,
		metric.WithDescription("Wall time of one inference procedure run"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: %s: %w", InferenceDurationName, err)
	}

	persistenceFailures, err := meter.Int64Counter(PersistenceFailuresName,
		metric.WithDescription("Failed writes to the prediction store"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: %s: %w", PersistenceFailuresName, err)
	}

	enrichments, err := meter.Int64Counter(EnrichmentsName,
		metric.WithDescription("Background description enrichments by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: %s: %w", EnrichmentsName, err)
	}

	return &Recorder{
		meter:               meter,
		requests:            requests,
		inferenceDuration:   inferenceDuration,
		persistenceFailures: persistenceFailures,
		enrichments:         enrichments,
	}, nil
}

// RegisterQueueDepth reports depth() as the enrichment queue gauge.
func (r *Recorder) RegisterQueueDepth(depth func() int) error {
	_, err := r.meter.Int64ObservableGauge(EnrichmentQueueName,
		metric.WithDescription("Enrichment tasks waiting for a worker"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(depth()))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("metrics: %s: %w", EnrichmentQueueName, err)
	}
	return nil
}

func (r *Recorder) RequestServed(ctx context.Context, outcome string) {
	r.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (r *Recorder) InferenceObserved(ctx context.Context, elapsed time.Duration, err error) {
	r.inferenceDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("result", inferenceResult(err))))
}

func (r *Recorder) PersistenceFailed(ctx context.Context, operation string) {
	r.persistenceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func (r *Recorder) EnrichmentFinished(ctx context.Context, outcome string) {
	r.enrichments.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func inferenceResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrInferenceTimeout):
		return "timeout"
	case errors.Is(err, model.ErrInferenceOutput):
		return "bad_output"
	default:
		return "error"
	}
}
