package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiterAllowsUpToLimit(t *testing.T) {
	limiter := New(NewMemoryStore(), 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "user:1")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !allowed {
			t.Fatalf("request %d must be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "user:1")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed {
		t.Fatal("fourth request must be rejected")
	}
}

func TestLimiterIsolatesKeys(t *testing.T) {
	limiter := New(NewMemoryStore(), 1, time.Minute)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "user:1"); !allowed {
		t.Fatal("first key must be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "user:2"); !allowed {
		t.Fatal("second key must have its own budget")
	}
	if allowed, _ := limiter.Allow(ctx, "user:1"); allowed {
		t.Fatal("first key must be exhausted")
	}
}

func TestMemoryStoreWindowExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if count, _ := store.Incr(ctx, "bucket", 10*time.Millisecond); count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
	if count, _ := store.Incr(ctx, "bucket", 10*time.Millisecond); count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}

	time.Sleep(20 * time.Millisecond)
	if count, _ := store.Incr(ctx, "bucket", 10*time.Millisecond); count != 1 {
		t.Fatalf("expected reset after expiry, got %d", count)
	}
}
