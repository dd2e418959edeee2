package restapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"optimetro.kochimetro.org/internal/clock"
	"optimetro.kochimetro.org/internal/models"
)

const (
	limiterIdleTTL         = 3 * time.Minute
	limiterCleanupInterval = time.Minute
)

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware gives every API key its own token bucket of
// requestsPerSecond with an equal burst.
type RateLimitMiddleware struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	limit    rate.Limit
	burst    int
	clock    clock.Clock

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRateLimitMiddleware starts a limiter with a background cleanup of idle
// keys. A non-positive rate disables limiting.
func NewRateLimitMiddleware(requestsPerSecond int, c clock.Clock) *RateLimitMiddleware {
	if c == nil {
		c = clock.RealClock{}
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	m := &RateLimitMiddleware{
		limiters: make(map[string]*keyLimiter),
		limit:    limit,
		burst:    max(requestsPerSecond, 1),
		clock:    c,
		stopChan: make(chan struct{}),
	}
	m.wg.Add(1)
	go m.cleanupLoop()
	return m
}

func (m *RateLimitMiddleware) getLimiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	entry, ok := m.limiters[key]
	if !ok {
		entry = &keyLimiter{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Handler returns middleware that answers 429 once a key exhausts its bucket.
func (m *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := m.getLimiter(apiKeyFromRequest(r))
			if !limiter.AllowN(m.clock.Now(), 1) {
				m.tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) tooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	response := models.NewErrorResponse(http.StatusTooManyRequests, "rate limit exceeded", m.clock)
	_ = json.NewEncoder(w).Encode(response)
}

func (m *RateLimitMiddleware) cleanupLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup drops limiters that have not been used for limiterIdleTTL.
func (m *RateLimitMiddleware) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.clock.Now().Add(-limiterIdleTTL)
	for key, entry := range m.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(m.limiters, key)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (m *RateLimitMiddleware) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
	})
}
