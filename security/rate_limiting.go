package security

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// Per-identity budget for event submission endpoints.
const (
	submitWindow = time.Minute
	submitLimit  = 30
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// SubmitRateLimit bounds how fast one caller can push events in. Counted
// per authenticated user when there is one, per client IP otherwise,
// using a fixed one-minute window in Redis.
func (r *RateLimiter) SubmitRateLimit() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		key := fmt.Sprintf("ratelimit:submit:%s", r.identity(e))
		ctx := e.Request.Context()

		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			// Redis being down should not take event submission with it.
			log.Printf("[RateLimit] Redis error, allowing request: %v", err)
			return e.Next()
		}
		if count == 1 {
			r.redis.Expire(ctx, key, submitWindow)
		}
		if count > submitLimit {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}

		return e.Next()
	}
}

func (r *RateLimiter) identity(e *core.RequestEvent) string {
	if e.Auth != nil {
		return "user:" + e.Auth.Id
	}
	return "ip:" + e.RealIP()
}
