package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/zhouzirui/maktab-chat/backend/pkg/utils"
)

type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// LimiterPool hands out one token bucket per key. Buckets unused for longer
// than the TTL are dropped by Sweep.
type LimiterPool struct {
	mu    sync.Mutex
	m     map[string]*limiterEntry
	rps   rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time
}

// NewLimiterPool creates a pool; rps <= 0 disables limiting.
func NewLimiterPool(rps float64, burst int) *LimiterPool {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &LimiterPool{
		m:     make(map[string]*limiterEntry),
		rps:   limit,
		burst: burst,
		ttl:   10 * time.Minute,
		now:   time.Now,
	}
}

func (p *LimiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.m[key]; ok {
		e.lastSeen = p.now()
		return e.l
	}
	l := rate.NewLimiter(p.rps, p.burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: p.now()}
	return l
}

// Allow reports whether one more request for key fits the budget.
func (p *LimiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// Sweep removes idle limiters and returns how many were dropped.
func (p *LimiterPool) Sweep() int {
	cutoff := p.now().Add(-p.ttl)

	p.mu.Lock()
	defer p.mu.Unlock()
	dropped := 0
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
			dropped++
		}
	}
	return dropped
}

// RunSweeper sweeps every period until stop is closed.
func (p *LimiterPool) RunSweeper(period time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Sweep()
		case <-stop:
			return
		}
	}
}

// RateLimit rejects requests whose key is over budget with 429. keyFn picks
// the bucket, typically the session id from the URL.
func RateLimit(pool *LimiterPool, keyFn func(*http.Request) string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				key = r.RemoteAddr
			}
			if !pool.Allow(key) {
				logger.Warn("request rate limited", "key", key, "path", r.URL.Path)
				utils.RespondError(w, http.StatusTooManyRequests, "too many messages, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
