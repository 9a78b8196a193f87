package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/safeharbor-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
)

// RedisRateLimiter is a fixed-window per-IP limiter shared by every instance.
// An IP that exceeds the window is blocked for BlockFor.
type RedisRateLimiter struct {
	client      *redis.Client
	Window      time.Duration
	MaxRequests int64
	BlockFor    time.Duration
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:      client,
		Window:      120 * time.Second,
		MaxRequests: 25,
		BlockFor:    time.Hour,
	}
}

// Hit counts one request from ip and reports whether it is allowed along
// with the number of requests left in the window.
func (l *RedisRateLimiter) Hit(ctx context.Context, ip string) (bool, int64, error) {
	blocked, err := l.client.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
	if err != nil {
		return true, 0, err
	}
	if blocked > 0 {
		return false, 0, nil
	}

	key := RateLimitKeyPrefix + ip
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}

	count := incr.Val()
	if count > l.MaxRequests {
		if err := l.client.Set(ctx, BlockedIPKeyPrefix+ip, "1", l.BlockFor).Err(); err != nil {
			return false, 0, err
		}
		return false, 0, nil
	}
	return true, l.MaxRequests - count, nil
}

// Middleware fails open: when Redis is unavailable requests pass.
func (l *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientip.RealClientIP(r)
		ok, remaining, err := l.Hit(r.Context(), ip)
		if err != nil {
			zap.L().Warn("ratelimit: redis unavailable, allowing request", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(l.BlockFor.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Please try again later.","retry_after":%d}`, int(l.BlockFor.Seconds()))))
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(l.MaxRequests, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		next.ServeHTTP(w, r)
	})
}
