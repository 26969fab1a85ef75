package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTimeout   = time.Hour
)

// ipRateLimiterStore holds one token bucket per client IP.
type ipRateLimiterStore struct {
	limiters  sync.Map // map[string]*ipRateLimiterEntry
	rps       float64
	burst     int
	now       func() time.Time
	sweepMu   sync.Mutex
	lastSweep time.Time
}

type ipRateLimiterEntry struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

// IPRateLimitMiddleware enforces per-IP rate limiting on the unauthenticated write
// endpoints (user registration, invitation creation and acceptance), which would
// otherwise let a caller enumerate the email hash index or guess invitation tokens.
//
// Uses c.ClientIP(), so X-Forwarded-For and X-Real-IP are honored according to the
// engine's trusted proxies.
//
// Returns 429 Too Many Requests with a Retry-After header when the bucket is empty.
func IPRateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newIPRateLimiterStore(rps, burst, time.Now)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := store.getLimiter(clientIP)

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := int(reservation.Delay().Seconds())
			reservation.Cancel()
			if retryAfter < 1 {
				retryAfter = 1
			}

			logger.Debug("rate limit exceeded",
				slog.String("client_ip", clientIP),
				slog.Int("retry_after", retryAfter))

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests from this IP. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func newIPRateLimiterStore(rps float64, burst int, now func() time.Time) *ipRateLimiterStore {
	return &ipRateLimiterStore{
		rps:       rps,
		burst:     burst,
		now:       now,
		lastSweep: now(),
	}
}

// getLimiter returns the limiter of ip, creating it on first use. Idle limiters are
// swept lazily so the store needs no background goroutine.
func (s *ipRateLimiterStore) getLimiter(ip string) *rate.Limiter {
	now := s.now()
	s.maybeSweep(now)

	entry := &ipRateLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: now,
	}
	if val, loaded := s.limiters.LoadOrStore(ip, entry); loaded {
		entry = val.(*ipRateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = now
		entry.mu.Unlock()
	}
	return entry.limiter
}

func (s *ipRateLimiterStore) maybeSweep(now time.Time) {
	s.sweepMu.Lock()
	if now.Sub(s.lastSweep) < limiterSweepInterval {
		s.sweepMu.Unlock()
		return
	}
	s.lastSweep = now
	s.sweepMu.Unlock()

	threshold := now.Add(-limiterIdleTimeout)
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*ipRateLimiterEntry)
		entry.mu.Lock()
		idle := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if idle {
			s.limiters.Delete(key)
		}
		return true
	})
}

func (s *ipRateLimiterStore) size() int {
	n := 0
	s.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
