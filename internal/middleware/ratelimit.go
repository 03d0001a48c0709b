package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/propertyhub-backend/pkg/clientip"
	"github.com/AnshRaj112/propertyhub-backend/pkg/log"
)

const (
	RateLimitKeyPrefix = "ratelimit:"

	DefaultRateLimit       = 25
	DefaultRateLimitWindow = 120 * time.Second
)

// RateLimiter is a fixed-window counter in Redis, per client IP and route group.
// Redis failures let the request through.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger log.Logger
}

// NewRateLimiter returns nil without a client; a nil limiter lets everything through.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration, logger log.Logger) *RateLimiter {
	if client == nil {
		return nil
	}
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &RateLimiter{client: client, limit: limit, window: window, logger: logger}
}

func (l *RateLimiter) Limit(group string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := RateLimitKeyPrefix + group + ":" + clientip.RealClientIP(r)

			count, err := l.client.Incr(ctx, key).Result()
			if err != nil {
				l.logger.Warn().Err(err).Str("group", group).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
					l.logger.Warn().Err(err).Str("group", group).Msg("rate limit window not set")
				}
			}

			remaining := l.limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > l.limit {
				retry := l.window
				if ttl, err := l.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
					retry = ttl
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
				writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
