package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const resetRequestPath = "/api/v1/password/request-reset"

// RateLimits holds per-client budgets. A value <= 0 disables that limiter.
type RateLimits struct {
	GeneralPerMinute int
	AuthPerMinute    int
	ResetPerHour     int
}

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	reset    *rate.Limiter
	lastSeen time.Time
}

type RateLimitMiddleware struct {
	limits  RateLimits
	mu      sync.Mutex
	clients map[string]*clientLimiter
	now     func() time.Time
}

func NewRateLimitMiddleware(limits RateLimits) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limits:  limits,
		clients: map[string]*clientLimiter{},
		now:     time.Now,
	}
}

func newLimiter(count int, window time.Duration) *rate.Limiter {
	if count <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(count)), count)
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := m.getLimiter(ClientIP(r))
		path := strings.ToLower(r.URL.Path)

		target, retryAfter := limiter.general, time.Minute
		switch {
		case r.Method == http.MethodPost && path == resetRequestPath:
			target, retryAfter = limiter.reset, time.Hour
		case strings.HasPrefix(path, "/api/v1/auth/"):
			target = limiter.auth
		}

		if target != nil && !target.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *clientLimiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if limiter, exists := m.clients[clientIP]; exists {
		limiter.lastSeen = now
		m.gcLocked(now)
		return limiter
	}

	created := &clientLimiter{
		general:  newLimiter(m.limits.GeneralPerMinute, time.Minute),
		auth:     newLimiter(m.limits.AuthPerMinute, time.Minute),
		reset:    newLimiter(m.limits.ResetPerHour, time.Hour),
		lastSeen: now,
	}
	m.clients[clientIP] = created
	m.gcLocked(now)

	return created
}

// gcLocked drops idle clients once the table grows. Reset limiters refill
// over an hour, so idle entries are kept at least that long.
func (m *RateLimitMiddleware) gcLocked(now time.Time) {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := now.Add(-time.Hour)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}
