package frontend

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// A client bucket refills to full burst within a minute, so one idle for this
// long carries no throttling state worth keeping.
const staleClientAfter = 5 * time.Minute

// clientLimiter enforces a per-client request budget using a token bucket
// for each client IP. Buckets for idle clients get swept opportunistically so
// one-off visitors do not accumulate.
type clientLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(requestsPerMinute int) *clientLimiter {
	return &clientLimiter{
		limit:   rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:   requestsPerMinute,
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

func (cl *clientLimiter) allow(clientIP string) bool {
	now := cl.now()

	cl.mu.Lock()
	cl.sweepStaleLocked(now)
	bucket, found := cl.clients[clientIP]
	if !found {
		bucket = &clientBucket{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[clientIP] = bucket
	}
	bucket.lastSeen = now
	cl.mu.Unlock()

	return bucket.limiter.Allow()
}

// sweepStaleLocked drops buckets for clients that have been idle long enough
// for their tokens to have fully refilled. Runs at most once per stale
// window. The caller must hold mu.
func (cl *clientLimiter) sweepStaleLocked(now time.Time) {
	if now.Sub(cl.lastSweep) < staleClientAfter {
		return
	}
	for ip, bucket := range cl.clients {
		if now.Sub(bucket.lastSeen) >= staleClientAfter {
			delete(cl.clients, ip)
		}
	}
	cl.lastSweep = now
}

// limited wraps an HTTP handler with a per-client rate limit check.
func (svc *Service) limited(cl *clientLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cl.allow(clientIP(r)) {
			throttledRequestsTotal.Inc()
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": msgThrottled,
			})
			return
		}
		next(w, r)
	}
}

// clientIP extracts the originating client address, honoring the
// X-Forwarded-For header injected by the reverse proxy in front of the
// service.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
