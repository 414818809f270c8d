package redis

import (
	"context"
	"testing"
	"time"
)

func TestRunLockAcquireRelease(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	lock, err := NewRunLock(rdb, time.Minute)
	if err != nil {
		t.Fatalf("NewRunLock() error = %v", err)
	}

	token, ok, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	_, ok, err = lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if ok {
		t.Fatal("second acquire should fail while lock is held")
	}

	if err := lock.Release(context.Background(), token); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	_, ok, err = lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !ok {
		t.Fatal("acquire should succeed after release")
	}
}

func TestRunLockReleaseWrongTokenKeepsLock(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	lock, err := NewRunLock(rdb, time.Minute)
	if err != nil {
		t.Fatalf("NewRunLock() error = %v", err)
	}

	_, ok, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !ok {
		t.Fatal("expected acquire to succeed")
	}

	if err := lock.Release(context.Background(), "stale-token"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	_, ok, err = lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if ok {
		t.Fatal("stale token release must not free the lock")
	}
}
