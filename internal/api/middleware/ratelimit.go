package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTimeout = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware implements per-identity rate limiting
type RateLimitMiddleware struct {
	perMinute int
	onLimited func()
	limiters  map[string]*limiterEntry
	mu        sync.Mutex
}

// NewRateLimitMiddleware creates a new rate limiting middleware. A
// perMinute of zero disables limiting. Idle limiters are dropped until
// ctx is done.
func NewRateLimitMiddleware(ctx context.Context, perMinute int, onLimited func()) *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		perMinute: perMinute,
		onLimited: onLimited,
		limiters:  make(map[string]*limiterEntry),
	}

	if perMinute > 0 {
		go m.cleanupLimiters(ctx)
	}

	return m
}

// RateLimit enforces rate limits per identity
func (m *RateLimitMiddleware) RateLimit(next http.Handler) http.Handler {
	if m.perMinute <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetIdentityFromContext(r.Context())

		if !m.getLimiter(id).Allow() {
			if m.onLimited != nil {
				m.onLimited()
			}
			respondJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getLimiter gets or creates a rate limiter for an identity
func (m *RateLimitMiddleware) getLimiter(id string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.limiters[id]
	if !exists {
		// Rate per minute converted to per second, bursting up to a full minute
		ratePerSecond := float64(m.perMinute) / 60.0
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), m.perMinute)}
		m.limiters[id] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter
}

// cleanupLimiters removes inactive limiters periodically
func (m *RateLimitMiddleware) cleanupLimiters(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.evictIdle(now)
		}
	}
}

func (m *RateLimitMiddleware) evictIdle(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, entry := range m.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTimeout {
			delete(m.limiters, id)
		}
	}
}
