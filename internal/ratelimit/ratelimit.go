package ratelimit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// counterStore increments a fixed-window counter and returns the new count.
// The window TTL is set on first increment.
type counterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter applies fixed-window rate limits keyed by caller identity.
type Limiter struct {
	store  counterStore
	limit  int64
	window time.Duration
}

func New(store counterStore, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: int64(limit), window: window}
}

// Allow reports whether the caller identified by key may proceed.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(l.window.Seconds()))
	count, err := l.store.Incr(ctx, bucket, l.window)
	if err != nil {
		return false, err
	}
	return count <= l.limit, nil
}

// Middleware limits requests per authenticated user, falling back to the
// remote IP for unauthenticated routes. The store failing open is deliberate:
// a broken counter must not take bookings down with it.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			key = "user:" + userID
		}

		allowed, err := l.Allow(c.Context(), key)
		if err != nil {
			log.Printf("rate limiter unavailable: %v", err)
			return c.Next()
		}
		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}

// RedisStore counts in Redis so limits hold across instances.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// MemoryStore is the single-instance fallback when Redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	counts  map[string]int64
	expires map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, ok := s.expires[key]; ok && now.After(expiry) {
		delete(s.counts, key)
		delete(s.expires, key)
	}
	if _, ok := s.counts[key]; !ok {
		s.expires[key] = now.Add(window)
	}
	s.counts[key]++

	// Occasional sweep so stale buckets do not accumulate.
	if len(s.expires) > 1024 {
		for k, expiry := range s.expires {
			if now.After(expiry) {
				delete(s.counts, k)
				delete(s.expires, k)
			}
		}
	}
	return s.counts[key], nil
}
