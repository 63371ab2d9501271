package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
)

// Handler processes one enrichment task.
type Handler func(ctx context.Context, task port.EnrichmentTask)

// Config configures a Queue.
type Config struct {
	Workers int
	Size    int
	// OnDrop is called for every task that could not be enqueued.
	OnDrop func(task port.EnrichmentTask)
}

var _ port.EnrichmentScheduler = (*Queue)(nil)

// Queue is a bounded in-memory task queue drained by a fixed set of
// workers. Schedule never blocks; when the buffer is full the task is
// dropped.
type Queue struct {
	tasks   chan port.EnrichmentTask
	handler Handler
	onDrop  func(task port.EnrichmentTask)
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewQueue creates a Queue and starts its workers.
func NewQueue(handler Handler, cfg Config, logger *slog.Logger) *Queue {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		tasks:   make(chan port.EnrichmentTask, cfg.Size),
		handler: handler,
		onDrop:  cfg.OnDrop,
		logger:  logger.With("component", "enrichment_queue"),
		ctx:     ctx,
		cancel:  cancel,
	}

	q.logger.Info("starting enrichment workers", "workers", cfg.Workers, "queue_size", cfg.Size)
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.runLoop(i + 1)
	}
	return q
}

// Schedule enqueues task. It returns false when the queue is full or closed.
func (q *Queue) Schedule(task port.EnrichmentTask) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.drop(task, "queue closed")
		return false
	}
	select {
	case q.tasks <- task:
		return true
	default:
		q.drop(task, "queue full")
		return false
	}
}

// Depth returns the number of tasks waiting for a worker.
func (q *Queue) Depth() int {
	return len(q.tasks)
}

// Close stops accepting tasks and waits for queued ones to finish. When ctx
// ends first, running handlers are cancelled and the rest are abandoned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		q.logger.Info("enrichment queue drained")
		return nil
	case <-ctx.Done():
		q.cancel()
		q.logger.Warn("enrichment queue drain interrupted", "abandoned", len(q.tasks))
		return fmt.Errorf("enrichment queue drain: %w", ctx.Err())
	}
}

func (q *Queue) runLoop(workerID int) {
	defer q.wg.Done()
	for task := range q.tasks {
		if q.ctx.Err() != nil {
			continue
		}
		q.run(workerID, task)
	}
}

func (q *Queue) run(workerID int, task port.EnrichmentTask) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("enrichment handler panic",
				"worker_id", workerID,
				"user_id", task.UserID,
				"panic", r,
			)
		}
	}()
	q.handler(q.ctx, task)
}

func (q *Queue) drop(task port.EnrichmentTask, reason string) {
	q.logger.Warn("enrichment task dropped", "user_id", task.UserID, "reason", reason)
	if q.onDrop != nil {
		q.onDrop(task)
	}
}
