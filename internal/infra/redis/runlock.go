package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	runLockKey        = "contact-monitor:run-lock"
	defaultRunLockTTL = 10 * time.Minute
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is an advisory lock guaranteeing at most one concurrent monitor
// run. The notification log is the sole idempotency guard, so two
// interleaved runs could double-send; the lock closes that window. The TTL
// bounds lock leakage if a run dies without releasing.
type RunLock struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

func NewRunLock(client *goredis.Client, ttl time.Duration) (*RunLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultRunLockTTL
	}

	return &RunLock{
		client: client,
		key:    runLockKey,
		ttl:    ttl,
	}, nil
}

// Acquire attempts to take the lock. It returns a release token and whether
// the lock was obtained; a held lock is not an error.
func (l *RunLock) Acquire(ctx context.Context) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, fmt.Errorf("run lock is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

// Release frees the lock only if the token still owns it, so a run that
// outlived its TTL cannot release a successor's lock.
func (l *RunLock) Release(ctx context.Context, token string) error {
	if l == nil || l.client == nil {
		return fmt.Errorf("run lock is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Result(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}
