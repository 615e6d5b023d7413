package httptransport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimiter is a fixed-window limiter over Redis INCR/EXPIRE. With no Redis
// configured, or when Redis is down, it fails open: availability over strict
// limits.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(addr, password string, db int) *RateLimiter {
	if addr == "" {
		return &RateLimiter{}
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unreachable; rate limiting disabled")
		return &RateLimiter{}
	}
	return &RateLimiter{client: client}
}

// Limit caps requests per identity per window on the routes it wraps. The
// identity is the authenticated wallet address when present, the client IP
// otherwise.
func (rl *RateLimiter) Limit(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.client == nil || maxRequests <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ident, ok := AddressFromContext(r.Context())
			if !ok {
				ident = r.RemoteAddr
			}
			key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident

			n, err := rl.client.Incr(r.Context(), key).Result()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if n == 1 {
				rl.client.Expire(r.Context(), key, window)
			}
			if n > int64(maxRequests) {
				metricRateLimited.Add(1)
				WriteHTTPError(w, http.StatusTooManyRequests, "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
