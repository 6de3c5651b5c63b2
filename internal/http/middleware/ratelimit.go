package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Submission endpoints are cheap to accept but expensive downstream (every
// 202 turns into adapter calls), so the API throttles per client IP rather
// than globally.
const (
	defaultRPS   = 20
	defaultBurst = 40
	// Idle clients drop out of the table so long-lived deployments don't
	// accumulate one limiter per address ever seen.
	clientIdleTTL = 3 * time.Minute
	sweepInterval = time.Minute
)

type clientLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

type ipThrottle struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

func newIPThrottle(rps float64, burst int) *ipThrottle {
	if rps <= 0 {
		rps = defaultRPS
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	throttle := &ipThrottle{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
	go throttle.sweep()
	return throttle
}

func (t *ipThrottle) allow(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	client, ok := t.clients[addr]
	if !ok {
		client = &clientLimiter{bucket: rate.NewLimiter(t.rps, t.burst)}
		t.clients[addr] = client
	}
	client.lastSeen = time.Now()
	return client.bucket.Allow()
}

func (t *ipThrottle) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		t.mu.Lock()
		for addr, client := range t.clients {
			if time.Since(client.lastSeen) > clientIdleTTL {
				delete(t.clients, addr)
			}
		}
		t.mu.Unlock()
	}
}

// RateLimit throttles per client IP. Zero or negative arguments fall back to
// the defaults.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	throttle := newIPThrottle(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !throttle.allow(clientAddr(r.RemoteAddr)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"too many requests"},"request_id":"` + GetRequestID(r.Context()) + `"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr strips the port; a RemoteAddr without one is used as-is.
func clientAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
