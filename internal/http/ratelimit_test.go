package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCounter struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (c *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if c.err != nil {
		return redis.NewIntResult(0, c.err)
	}
	c.counts[key]++
	return redis.NewIntResult(c.counts[key], nil)
}

func (c *fakeCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	c.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func TestRateLimiter_Allow(t *testing.T) {
	counter := newFakeCounter()
	limiter := NewRateLimiter(counter, 2, time.Second, zap.NewNop())
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i, expected := range []bool{true, true, false} {
		allowed, err := limiter.Allow(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, expected, allowed, "request %d", i)
	}

	// другой клиент считается отдельно
	allowed, _ := limiter.Allow(context.Background(), "10.0.0.2")
	assert.True(t, allowed)

	// новое окно сбрасывает счётчик
	now = now.Add(time.Second)
	allowed, _ = limiter.Allow(context.Background(), "10.0.0.1")
	assert.True(t, allowed)

	for _, ttl := range counter.expires {
		assert.Equal(t, time.Second, ttl)
	}
}

func TestRateLimiter_MiddlewareRejects(t *testing.T) {
	limiter := NewRateLimiter(newFakeCounter(), 1, time.Minute, zap.NewNop())
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("GET", "/api/v1/transformers", nil)
	req.RemoteAddr = "192.0.2.1:5000"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	counter := newFakeCounter()
	counter.err = errors.New("connection refused")
	limiter := NewRateLimiter(counter, 1, time.Second, zap.NewNop())

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
