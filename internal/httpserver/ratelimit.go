package httpserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyLimiter struct {
	lim *rate.Limiter
	ts  time.Time
}

type rateLimiter struct {
	mu  sync.Mutex
	m   map[string]*keyLimiter
	r   rate.Limit
	b   int
	ttl time.Duration
}

func newRateLimiter(r rate.Limit, burst int, ttl time.Duration) *rateLimiter {
	rl := &rateLimiter{m: make(map[string]*keyLimiter), r: r, b: burst, ttl: ttl}
	go rl.gc()
	return rl
}

func (rl *rateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	kl, ok := rl.m[key]
	if ok {
		kl.ts = time.Now()
		return kl.lim
	}
	lim := rate.NewLimiter(rl.r, rl.b)
	rl.m[key] = &keyLimiter{lim: lim, ts: time.Now()}
	return lim
}

func (rl *rateLimiter) gc() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		for k, v := range rl.m {
			if now.Sub(v.ts) > rl.ttl {
				delete(rl.m, k)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit is a per-client-IP token bucket. Stale buckets are garbage
// collected after two minutes of inactivity.
func RateLimit(r rate.Limit, burst int) func(http.Handler) http.Handler {
	rl := newRateLimiter(r, burst, 2*time.Minute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ip := clientIP(req.RemoteAddr)
			if !rl.get(ip).Allow() {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
