package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
	"github.com/thenielthevis/capstone-project-sub006/pkg/events"
)

// --- Mock implementations ---

type storedUser struct {
	profile model.UserHealthProfile
	cached  *model.CachedPredictionSet
}

type mockStore struct {
	mu                 sync.Mutex
	users              map[uuid.UUID]*storedUser
	findCalls          int
	replaceCalls       int
	replaceFunc        func(ctx context.Context, userID uuid.UUID, set *model.CachedPredictionSet) (*model.CachedPredictionSet, error)
	updateDescriptions func(ctx context.Context, userID uuid.UUID, descriptions map[string]string) (int, error)
}

func newMockStore() *mockStore {
	return &mockStore{users: make(map[uuid.UUID]*storedUser)}
}

func (m *mockStore) addUser(profile model.UserHealthProfile, cached *model.CachedPredictionSet) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.users[id] = &storedUser{profile: profile, cached: cached}
	return id
}

func (m *mockStore) cached(id uuid.UUID) *model.CachedPredictionSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].cached.Clone()
}

func (m *mockStore) FindByID(_ context.Context, userID uuid.UUID) (*model.UserPredictionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	u, ok := m.users[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return model.ReconstructUserPredictionRecord(userID, u.profile, u.cached.Clone()), nil
}

func (m *mockStore) ReplacePredictions(ctx context.Context, userID uuid.UUID, set *model.CachedPredictionSet) (*model.CachedPredictionSet, error) {
	m.mu.Lock()
	m.replaceCalls++
	m.mu.Unlock()
	if m.replaceFunc != nil {
		return m.replaceFunc(ctx, userID, set)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	u.cached = set.Clone()
	return set.Clone(), nil
}

func (m *mockStore) UpdateDescriptions(ctx context.Context, userID uuid.UUID, descriptions map[string]string) (int, error) {
	if m.updateDescriptions != nil {
		return m.updateDescriptions(ctx, userID, descriptions)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return 0, model.ErrUserNotFound
	}
	return u.cached.ApplyDescriptions(descriptions), nil
}

type mockInference struct {
	mu        sync.Mutex
	calls     int
	output    []byte
	err       error
	inferFunc func(ctx context.Context, features model.FeatureVector) ([]byte, error)
}

func (m *mockInference) Infer(ctx context.Context, features model.FeatureVector) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.inferFunc != nil {
		return m.inferFunc(ctx, features)
	}
	return m.output, m.err
}

func (m *mockInference) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockPublisher struct {
	mu          sync.Mutex
	published   []events.DomainEvent
	publishFunc func(ctx context.Context, evts ...events.DomainEvent) error
}

func (m *mockPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, evts...)
	return nil
}

func (m *mockPublisher) Events() []events.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.DomainEvent(nil), m.published...)
}

type mockScheduler struct {
	mu           sync.Mutex
	tasks        []port.EnrichmentTask
	scheduleFunc func(task port.EnrichmentTask) bool
}

func (m *mockScheduler) Schedule(task port.EnrichmentTask) bool {
	if m.scheduleFunc != nil {
		return m.scheduleFunc(task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return true
}

func (m *mockScheduler) Tasks() []port.EnrichmentTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]port.EnrichmentTask(nil), m.tasks...)
}

type mockGenerator struct {
	describeFunc func(ctx context.Context, names []string) (map[string]string, error)
}

func (m *mockGenerator) Describe(ctx context.Context, names []string) (map[string]string, error) {
	return m.describeFunc(ctx, names)
}

type mockGuard struct {
	doFunc func(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error)
}

func (m *mockGuard) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	return m.doFunc(ctx, key, fn)
}

type mockMetrics struct {
	mu          sync.Mutex
	outcomes    []string
	inferences  int
	persistErrs int
	enrichments []string
}

func (m *mockMetrics) RequestServed(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockMetrics) InferenceObserved(context.Context, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inferences++
}

func (m *mockMetrics) PersistenceFailed(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistErrs++
}

func (m *mockMetrics) EnrichmentFinished(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enrichments = append(m.enrichments, outcome)
}

type mutableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mutableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mutableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
