package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/vidfriends/vidvault/internal/config"
	"github.com/vidfriends/vidvault/internal/logging"
)

type bucket struct {
	tokens *rate.Limiter
	seen   time.Time
}

// KeyedLimiter keeps one token bucket per key (a scope plus client IP) and drops
// buckets that have been idle longer than ttl. It satisfies echo's RateLimiterStore.
type KeyedLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	every     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewKeyedLimiter allows cfg.Requests per cfg.Window for each key with bursts of
// up to cfg.Burst.
func NewKeyedLimiter(cfg config.RateLimitConfig, ttl time.Duration) *KeyedLimiter {
	limiter := &KeyedLimiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(time.Second),
		burst:   max(cfg.Burst, 1),
		ttl:     ttl,
		now:     time.Now,
	}
	if cfg.Requests > 0 && cfg.Window > 0 {
		limiter.every = rate.Every(cfg.Window / time.Duration(cfg.Requests))
	}
	if limiter.ttl <= 0 {
		limiter.ttl = 5 * time.Minute
	}
	return limiter
}

// Allow spends one token from key's bucket.
func (l *KeyedLimiter) Allow(key string) (bool, error) {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		l.sweep(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	l.mu.Unlock()

	return b.tokens.AllowN(now, 1), nil
}

// sweep runs at most once per ttl. Caller holds l.mu.
func (l *KeyedLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.seen) > l.ttl {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// WithNowFunc replaces the clock.
func (l *KeyedLimiter) WithNowFunc(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// RateLimit rejects requests with 429 once the caller's IP exceeds the store's
// budget for scope. A nil store disables limiting.
func RateLimit(store echomw.RateLimiterStore, scope string) echo.MiddlewareFunc {
	if store == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			return strings.TrimPrefix(scope+":"+ip, ":"), nil
		},
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			logging.FromContext(c.Request().Context()).Warn("rate limit exceeded", "key", identifier)
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}
