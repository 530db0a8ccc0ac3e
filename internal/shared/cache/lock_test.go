package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRedisLocker(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedisLocker(rdb)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "settlement:match:1", 30*time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err := l.Acquire(ctx, "settlement:match:1", 30*time.Second); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	if _, err := l.Acquire(ctx, "settlement:match:2", 30*time.Second); err != nil {
		t.Fatalf("other key must be free: %v", err)
	}

	release()
	release()
	if mr.Exists("lock:settlement:match:1") {
		t.Fatalf("lock not released")
	}

	if _, err := l.Acquire(ctx, "settlement:match:1", 30*time.Second); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedisLocker(rdb)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// trava expirou e outro processo pegou
	mr.FastForward(2 * time.Second)
	if _, err := l.Acquire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("second owner: %v", err)
	}

	release()
	if !mr.Exists("lock:k") {
		t.Fatalf("stale release must not delete the new owner's lock")
	}
}

func TestRedisLocker_ConnectionErrorIsNotHeld(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedisLocker(rdb)
	mr.Close()

	_, err := l.Acquire(context.Background(), "settlement:match:1", 30*time.Second)
	if err == nil {
		t.Fatalf("expected error with redis down")
	}
	if errors.Is(err, ErrLockHeld) {
		t.Fatalf("connection error reported as held lock: %v", err)
	}
}
