package guard

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/port"
)

// Locker serializes work on a key across processes.
type Locker interface {
	// Acquire blocks until the lock for key is held or gives up with an
	// error. The returned release func is safe to call once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

var _ port.ComputeGuard = (*Guard)(nil)

// Guard collapses concurrent computations per key inside this process and,
// when a Locker is configured, across instances.
type Guard struct {
	group  singleflight.Group
	locker Locker
	logger *slog.Logger
}

// New creates a Guard. locker may be nil.
func New(locker Locker, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		locker: locker,
		logger: logger.With("component", "compute_guard"),
	}
}

// Do runs fn once per key among concurrent callers. fn runs detached from
// the caller's cancellation so a departing leader does not fail the
// waiters; a caller whose context ends stops waiting and gets ctx.Err().
func (g *Guard) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, bool, error) {
	leader := false
	ch := g.group.DoChan(key, func() (any, error) {
		leader = true
		runCtx := context.WithoutCancel(ctx)

		if g.locker != nil {
			release, err := g.locker.Acquire(runCtx, key)
			switch {
			case err == nil:
				defer release()
			case errors.Is(err, ErrLockHeld):
				g.logger.Warn("compute lock still held by another instance, computing anyway", "key", key)
			default:
				g.logger.Warn("compute lock unavailable, computing without it", "key", key, "error", err)
			}
		}
		return fn(runCtx)
	})

	select {
	case res := <-ch:
		return res.Val, !leader, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
