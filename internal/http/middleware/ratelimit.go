package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// throttle tracks a token bucket per client, refilled at limit tokens per
// window. Bucket capacity equals limit, so a full window of requests may
// arrive in one burst.
type throttle struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket
	limit   float64
	window  time.Duration
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

func newThrottle(limit int, window time.Duration) *throttle {
	if window <= 0 {
		window = time.Minute
	}
	t := &throttle{
		clients: make(map[string]*tokenBucket),
		limit:   float64(limit),
		window:  window,
	}
	go t.evictIdle()
	return t
}

func (t *throttle) allow(client string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	b, ok := t.clients[client]
	if !ok {
		b = &tokenBucket{tokens: t.limit, seen: now}
		t.clients[client] = b
	}

	b.tokens += now.Sub(b.seen).Seconds() * t.limit / t.window.Seconds()
	if b.tokens > t.limit {
		b.tokens = t.limit
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evictIdle drops buckets idle long enough to have fully refilled, keeping
// the map from growing with one entry per client IP ever seen.
func (t *throttle) evictIdle() {
	idle := 2 * t.window
	if idle < time.Minute {
		idle = time.Minute
	}
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for range ticker.C {
		t.mu.Lock()
		cutoff := time.Now().Add(-idle)
		for client, b := range t.clients {
			if b.seen.Before(cutoff) {
				delete(t.clients, client)
			}
		}
		t.mu.Unlock()
	}
}

// RateLimit allows at most limit requests per window for each client IP and
// rejects the rest with 429 Too Many Requests.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	t := newThrottle(limit, window)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.allow(clientIP(r)) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. When the router mounts chi's
// RealIP middleware ahead of this one, RemoteAddr already holds the address
// taken from the proxy headers.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
