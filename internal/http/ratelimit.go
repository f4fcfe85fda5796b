package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Counter подмножество команд Redis, нужное ограничителю
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimiter ограничивает число запросов с одного адреса в фиксированном окне.
// При недоступности Redis запросы пропускаются.
type RateLimiter struct {
	counter Counter
	limit   int
	window  time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewRateLimiter(counter Counter, limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow увеличивает счётчик клиента в текущем окне и сообщает, не превышен ли лимит
func (l *RateLimiter) Allow(ctx context.Context, client string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	key := fmt.Sprintf("ratelimit:%s:%d", client, bucket)

	count, err := l.counter.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.counter.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(l.limit), nil
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)

		allowed, err := l.Allow(r.Context(), client)
		if err != nil {
			l.logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
		}
		if !allowed {
			metrics.HTTPRateLimited.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds()+0.5)))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
