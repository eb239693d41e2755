package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Counter increments the hit count of key inside a window that expires after
// ttl and returns the new count.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// RateLimit allows limit requests per client IP in each fixed window. When the
// counter is unavailable requests are let through.
func RateLimit(counter Counter, limit int, window time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return rateLimit(counter, limit, window, logger, time.Now)
}

func rateLimit(counter Counter, limit int, window time.Duration, logger *slog.Logger, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}

		t := now()
		bucket := t.UnixNano() / int64(window)
		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), bucket)

		n, err := counter.Incr(c.Request.Context(), key, window)
		if err != nil {
			logger.Warn("rate limit counter", slog.String("error", err.Error()))
			c.Next()
			return
		}

		remaining := int64(limit) - n
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if n > int64(limit) {
			reset := time.Unix(0, (bucket+1)*int64(window))
			c.Header("Retry-After", strconv.Itoa(int(reset.Sub(t).Seconds()+0.999)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
