package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld means the lock stayed taken for the whole wait period.
var ErrLockHeld = errors.New("lock held by another owner")

const (
	defaultKeyPrefix    = "healthrisk:compute:"
	defaultPollInterval = 100 * time.Millisecond
	releaseTimeout      = 2 * time.Second
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLockerConfig configures a RedisLocker.
type RedisLockerConfig struct {
	// TTL bounds how long a crashed owner can keep the lock.
	TTL time.Duration
	// Wait is how long Acquire polls before returning ErrLockHeld.
	Wait time.Duration
	// PollInterval defaults to 100ms.
	PollInterval time.Duration
	// KeyPrefix defaults to "healthrisk:compute:".
	KeyPrefix string
}

// RedisLocker is a single-instance Redis lock: SET NX PX with a random token
// and a compare-and-delete release.
type RedisLocker struct {
	client redis.Cmdable
	cfg    RedisLockerConfig
	logger *slog.Logger
}

// NewRedisLocker creates a RedisLocker.
func NewRedisLocker(client redis.Cmdable, cfg RedisLockerConfig, logger *slog.Logger) *RedisLocker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{client: client, cfg: cfg, logger: logger}
}

// Acquire polls until the lock is taken, the wait elapses or ctx ends.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := l.cfg.KeyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.cfg.Wait)

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if ok {
			return l.releaseFunc(lockKey, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, lockKey)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaseFunc(lockKey, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release compute lock", "key", lockKey, "error", err)
		}
	}
}
