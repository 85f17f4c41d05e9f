package echoServer

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/angata1/PawBit/app/echoServer/jwtx"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller (identity id, else client IP).
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: map[string]*limiterEntry{},
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	ent, ok := rl.limiters[key]
	if !ok {
		ent = &limiterEntry{lim: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = ent
	}
	ent.lastSeen = time.Now()
	return ent.lim.Allow()
}

// Prune drops buckets idle for longer than idle.
func (rl *RateLimiter) Prune(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-idle)
	for k, ent := range rl.limiters {
		if ent.lastSeen.Before(cutoff) {
			delete(rl.limiters, k)
		}
	}
}

func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if id := jwtx.OptionalIdentity(c); id != nil {
				key = "user:" + id.ID
			}
			if !rl.allow(key) {
				slog.Warn("rate limit exceeded", "key", key, "path", c.Path(),
					"req_id", c.Response().Header().Get(echo.HeaderXRequestID))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "Too many requests"})
			}
			return next(c)
		}
	}
}
