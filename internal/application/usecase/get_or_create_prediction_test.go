package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenielthevis/capstone-project-sub006/internal/application/dto"
	"github.com/thenielthevis/capstone-project-sub006/internal/application/usecase"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/event"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/service"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/valueobject"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/guard"
	"github.com/thenielthevis/capstone-project-sub006/pkg/events"
)

type fixture struct {
	store     *mockStore
	inference *mockInference
	publisher *mockPublisher
	scheduler *mockScheduler
	metrics   *mockMetrics
	clock     *mutableClock
	deps      usecase.GetOrCreatePredictionDeps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	labels, err := service.NewLabelTable([]string{"Diabetes", "Hypertension"})
	require.NoError(t, err)

	f := &fixture{
		store:     newMockStore(),
		inference: &mockInference{output: []byte(`{"0":0.02,"1":0.55}`)},
		publisher: &mockPublisher{},
		scheduler: &mockScheduler{},
		metrics:   &mockMetrics{},
		clock:     &mutableClock{now: time.Date(2026, 4, 14, 9, 0, 0, 0, time.UTC)},
	}
	f.deps = usecase.GetOrCreatePredictionDeps{
		Store:     f.store,
		Inference: f.inference,
		Clock:     f.clock,
		Publisher: f.publisher,
		Scheduler: f.scheduler,
		Metrics:   f.metrics,
		Labels:    labels,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return f
}

func (f *fixture) useCase() *usecase.GetOrCreatePrediction {
	return usecase.NewGetOrCreatePrediction(f.deps)
}

func responseNames(resp dto.PredictionResponse) []string {
	out := make([]string, len(resp.Predictions))
	for i, p := range resp.Predictions {
		out[i] = p.Name
	}
	return out
}

func TestGetOrCreatePrediction_Execute(t *testing.T) {
	t.Run("computes, persists and reuses the same-day cache", func(t *testing.T) {
		f := newFixture(t)
		uc := f.useCase()
		userID := f.store.addUser(model.UserHealthProfile{}, nil)
		req := dto.GetOrCreatePredictionRequest{UserID: userID}

		resp, err := uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"Hypertension", "Diabetes"}, responseNames(resp))
		assert.Equal(t, "model", resp.Source)
		assert.Equal(t, 0.55, resp.TopProbability)
		assert.False(t, resp.Cached)
		assert.True(t, resp.Persisted)
		assert.Equal(t, 1, f.inference.Calls())

		stored := f.store.cached(userID)
		require.NotNil(t, stored)
		assert.Equal(t, []string{"Hypertension", "Diabetes"}, stored.DiseaseNames)
		assert.Equal(t, model.SetSourceModel, stored.Source)
		assert.Equal(t, f.clock.Now(), stored.PredictedAt)

		evts := f.publisher.Events()
		require.Len(t, evts, 1)
		assert.Equal(t, event.EventTypePredictionGenerated, evts[0].EventType())

		tasks := f.scheduler.Tasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, userID, tasks[0].UserID)
		assert.Len(t, tasks[0].Predictions, 2)

		// Later the same day: served from the cache without inference.
		f.clock.Advance(10 * time.Hour)
		resp, err = uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, resp.Cached)
		assert.Equal(t, []string{"Hypertension", "Diabetes"}, responseNames(resp))
		assert.Equal(t, 1, f.inference.Calls())
		assert.Len(t, f.scheduler.Tasks(), 1)

		// Forced: exactly one more invocation overwriting the cache.
		f.inference.output = []byte(`[0.7, 0.1]`)
		resp, err = uc.Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID, ForceRegenerate: true})
		require.NoError(t, err)
		assert.False(t, resp.Cached)
		assert.Equal(t, 2, f.inference.Calls())
		assert.Equal(t, []string{"Diabetes", "Hypertension"}, f.store.cached(userID).DiseaseNames)
		assert.Equal(t, f.clock.Now(), f.store.cached(userID).PredictedAt)

		assert.Equal(t, []string{usecase.OutcomeComputed, usecase.OutcomeCached, usecase.OutcomeComputed}, f.metrics.outcomes)
	})

	t.Run("stale cache is recomputed", func(t *testing.T) {
		f := newFixture(t)
		old, err := model.NewCachedPredictionSet([]model.RiskPrediction{
			{Name: "Asthma", Probability: 0.3, Source: valueobject.SourceModel, Percentage: 30},
		}, f.clock.Now().AddDate(0, 0, -1))
		require.NoError(t, err)
		userID := f.store.addUser(model.UserHealthProfile{}, old)

		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.NoError(t, err)
		assert.False(t, resp.Cached)
		assert.Equal(t, 1, f.inference.Calls())
		assert.Equal(t, []string{"Hypertension", "Diabetes"}, f.store.cached(userID).DiseaseNames)
	})

	t.Run("read-only returns a stale cache without computing", func(t *testing.T) {
		f := newFixture(t)
		old, err := model.NewCachedPredictionSet([]model.RiskPrediction{
			{Name: "Asthma", Probability: 0.3, Source: valueobject.SourceModel, Percentage: 30},
		}, f.clock.Now().AddDate(0, -2, 0))
		require.NoError(t, err)
		userID := f.store.addUser(model.UserHealthProfile{}, old)

		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{
			UserID: userID, ReadOnly: true, ForceRegenerate: true,
		})
		require.NoError(t, err)
		assert.True(t, resp.Cached)
		assert.Equal(t, []string{"Asthma"}, responseNames(resp))
		assert.Zero(t, f.inference.Calls())
	})

	t.Run("read-only without cache", func(t *testing.T) {
		f := newFixture(t)
		userID := f.store.addUser(model.UserHealthProfile{}, nil)

		_, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID, ReadOnly: true})
		require.ErrorIs(t, err, model.ErrNoPredictionsAvailable)
		assert.Zero(t, f.inference.Calls())
		assert.Equal(t, []string{usecase.OutcomeNoPredictions}, f.metrics.outcomes)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: uuid.New()})
		require.ErrorIs(t, err, model.ErrUserNotFound)
		assert.Equal(t, []string{usecase.OutcomeUserNotFound}, f.metrics.outcomes)
	})

	t.Run("undecodable inference output aborts without writing", func(t *testing.T) {
		f := newFixture(t)
		f.inference.output = []byte("Traceback (most recent call last):")
		userID := f.store.addUser(model.UserHealthProfile{}, nil)

		_, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.ErrorIs(t, err, model.ErrInferenceOutput)
		assert.Zero(t, f.store.replaceCalls)
		assert.Empty(t, f.scheduler.Tasks())
	})

	t.Run("inference errors propagate", func(t *testing.T) {
		f := newFixture(t)
		f.inference.err = fmt.Errorf("%w: after 30s", model.ErrInferenceTimeout)
		userID := f.store.addUser(model.UserHealthProfile{}, nil)

		_, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.ErrorIs(t, err, model.ErrInferenceTimeout)
		assert.Equal(t, 1, f.metrics.inferences)
		assert.Equal(t, []string{usecase.OutcomeError}, f.metrics.outcomes)
	})

	t.Run("persistence failure returns the unpersisted result", func(t *testing.T) {
		f := newFixture(t)
		f.store.replaceFunc = func(context.Context, uuid.UUID, *model.CachedPredictionSet) (*model.CachedPredictionSet, error) {
			return nil, fmt.Errorf("%w: connection refused", model.ErrPersistence)
		}
		userID := f.store.addUser(model.UserHealthProfile{}, nil)

		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.NoError(t, err)
		assert.False(t, resp.Persisted)
		assert.False(t, resp.Cached)
		assert.Equal(t, []string{"Hypertension", "Diabetes"}, responseNames(resp))
		assert.Equal(t, 1, f.metrics.persistErrs)
		assert.Empty(t, f.publisher.Events())
		assert.Empty(t, f.scheduler.Tasks())
		assert.Equal(t, []string{usecase.OutcomeUnpersisted}, f.metrics.outcomes)
	})

	t.Run("invalid probabilities skip the write and are flagged", func(t *testing.T) {
		f := newFixture(t)
		f.inference.output = []byte(`[1.5, 0.2]`)
		userID := f.store.addUser(model.UserHealthProfile{}, nil)

		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.NoError(t, err)
		assert.True(t, resp.ValidationFailed)
		assert.False(t, resp.Persisted)
		assert.Equal(t, []string{"Diabetes", "Hypertension"}, responseNames(resp))
		assert.Zero(t, f.store.replaceCalls)
		assert.Nil(t, f.store.cached(userID))
	})

	t.Run("everything filtered out", func(t *testing.T) {
		f := newFixture(t)
		f.inference.output = []byte(`[0.001, 0.002]`)
		userID := f.store.addUser(model.UserHealthProfile{}, nil)

		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.NoError(t, err)
		assert.NotNil(t, resp.Predictions)
		assert.Empty(t, resp.Predictions)
		assert.False(t, resp.Persisted)
		assert.False(t, resp.ValidationFailed)
		assert.Contains(t, resp.Warnings, usecase.WarningAllFiltered)
		assert.Zero(t, f.store.replaceCalls)
	})

	t.Run("reported conditions are always kept", func(t *testing.T) {
		f := newFixture(t)
		f.inference.output = []byte(`{"Flu":0.001,"Diabetes":0.004}`)
		userID := f.store.addUser(model.UserHealthProfile{
			MedicalHistory: &model.MedicalHistory{CurrentConditions: []string{"diabetes"}},
		}, nil)

		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.NoError(t, err)
		require.Len(t, resp.Predictions, 1)
		assert.Equal(t, "Diabetes", resp.Predictions[0].Name)
		assert.Equal(t, "existing_condition", resp.Predictions[0].Source)
		assert.Equal(t, model.SetSourceHybrid, resp.Source)
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		f := newFixture(t)
		f.publisher.publishFunc = func(context.Context, ...events.DomainEvent) error {
			return errors.New("broker down")
		}
		userID := f.store.addUser(model.UserHealthProfile{}, nil)

		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.NoError(t, err)
		assert.True(t, resp.Persisted)
	})

	t.Run("descriptions already present skip enrichment", func(t *testing.T) {
		f := newFixture(t)
		f.inference.output = []byte(`[{"name":"Diabetes","probability":0.4,"description":"Impaired glucose regulation."}]`)
		userID := f.store.addUser(model.UserHealthProfile{}, nil)

		_, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.NoError(t, err)
		assert.Empty(t, f.scheduler.Tasks())
	})

	t.Run("waiter handed a shared result does not schedule again", func(t *testing.T) {
		f := newFixture(t)
		f.deps.Guard = &mockGuard{doFunc: func(context.Context, string, func(context.Context) (any, error)) (any, bool, error) {
			return dto.PredictionResponse{Persisted: true, Predictions: []dto.PredictionDTO{{Name: "Hypertension"}}}, true, nil
		}}
		userID := f.store.addUser(model.UserHealthProfile{}, nil)

		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.NoError(t, err)
		assert.True(t, resp.Persisted)
		assert.Zero(t, f.inference.Calls())
		assert.Empty(t, f.scheduler.Tasks())
	})

	t.Run("negative model probability is flagged instead of filtered", func(t *testing.T) {
		f := newFixture(t)
		f.inference.output = []byte(`[-0.5, 0.3]`)
		userID := f.store.addUser(model.UserHealthProfile{}, nil)

		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.NoError(t, err)
		assert.True(t, resp.ValidationFailed)
		assert.False(t, resp.Persisted)
		assert.Equal(t, []string{"Hypertension", "Diabetes"}, responseNames(resp))
		assert.Zero(t, f.store.replaceCalls)
		assert.Nil(t, f.store.cached(userID))
		assert.Empty(t, f.publisher.Events())
		assert.Empty(t, f.scheduler.Tasks())
		assert.Equal(t, []string{usecase.OutcomeValidationFailed}, f.metrics.outcomes)
	})

	t.Run("guard re-check returns a set stored while waiting", func(t *testing.T) {
		f := newFixture(t)
		userID := f.store.addUser(model.UserHealthProfile{}, nil)
		f.deps.Guard = &mockGuard{doFunc: func(ctx context.Context, _ string, fn func(context.Context) (any, error)) (any, bool, error) {
			// Another instance finished first.
			set, err := model.NewCachedPredictionSet([]model.RiskPrediction{
				{Name: "Stroke", Probability: 0.2, Source: valueobject.SourceModel, Percentage: 20},
			}, f.clock.Now())
			require.NoError(t, err)
			_, err = f.store.ReplacePredictions(ctx, userID, set)
			require.NoError(t, err)
			v, err := fn(ctx)
			return v, false, err
		}}

		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		require.NoError(t, err)
		assert.True(t, resp.Cached)
		assert.Equal(t, []string{"Stroke"}, responseNames(resp))
		assert.Zero(t, f.inference.Calls())
	})
}

func TestGetOrCreatePrediction_CancelledCallerStillEnriches(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser(model.UserHealthProfile{}, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	f.inference.inferFunc = func(context.Context, model.FeatureVector) ([]byte, error) {
		close(started)
		<-release
		return []byte(`{"0":0.02,"1":0.55}`), nil
	}
	f.deps.Guard = guard.New(nil, f.deps.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := f.useCase().Execute(ctx, dto.GetOrCreatePredictionRequest{UserID: userID})
		errCh <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	close(release)

	require.Eventually(t, func() bool { return len(f.scheduler.Tasks()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, userID, f.scheduler.Tasks()[0].UserID)
	assert.NotNil(t, f.store.cached(userID))
}

func TestGetOrCreatePrediction_EnrichmentIsNotAwaited(t *testing.T) {
	f := newFixture(t)
	userID := f.store.addUser(model.UserHealthProfile{}, nil)

	release := make(chan struct{})
	generator := &mockGenerator{describeFunc: func(ctx context.Context, names []string) (map[string]string, error) {
		<-release
		out := make(map[string]string, len(names))
		for _, n := range names {
			out[n] = "About " + n + "."
		}
		return out, nil
	}}
	enrich := usecase.NewEnrichDescriptions(f.store, generator, f.publisher, f.clock, f.metrics, f.deps.Logger, nil, 0)

	var wg sync.WaitGroup
	f.deps.Scheduler = &mockScheduler{scheduleFunc: func(task port.EnrichmentTask) bool {
		wg.Add(1)
		go func() {
			defer wg.Done()
			enrich.Handle(context.Background(), task)
		}()
		return true
	}}

	done := make(chan dto.PredictionResponse, 1)
	go func() {
		resp, err := f.useCase().Execute(context.Background(), dto.GetOrCreatePredictionRequest{UserID: userID})
		assert.NoError(t, err)
		done <- resp
	}()

	var resp dto.PredictionResponse
	select {
	case resp = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("request blocked on description generation")
	}
	assert.Empty(t, resp.Predictions[0].Description)

	close(release)
	wg.Wait()

	stored := f.store.cached(userID)
	assert.Equal(t, "About Hypertension.", stored.Predictions[0].Description)
	assert.Equal(t, "About Diabetes.", stored.Predictions[1].Description)
	assert.Equal(t, f.clock.Now(), stored.PredictedAt)
	assert.Equal(t, []string{usecase.EnrichmentSucceeded}, f.metrics.enrichments)
}
