package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const idleTTL = 5 * time.Minute

type entry struct {
	limiter *rate.Limiter
	expires time.Time
}

// Limiter is a per-client token bucket. Buckets idle for five minutes are
// dropped by a sweep that runs at most once per idle period.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*entry
	lastSweep time.Time
	limit     rate.Limit
	burst     int
	now       func() time.Time
}

func New(perMinute int) *Limiter {
	perMinute = max(perMinute, 1)
	return &Limiter{
		clients: map[string]*entry{},
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   max(perMinute/2, 1),
		now:     time.Now,
	}
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > idleTTL {
		for k, e := range l.clients {
			if now.After(e.expires) {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.clients[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = e
	}
	e.expires = now.Add(idleTTL)
	return e.limiter.AllowN(now, 1)
}

// Middleware limits write requests by client address. Reads pass through.
// The address is RemoteAddr, which only TrustedRealIP may rewrite.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !l.Allow(clientKey(r)) {
			w.Header().Set("Content-Type", "application/problem+json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"title":"Too Many Requests","status":429,"detail":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	return hostOf(r.RemoteAddr)
}
