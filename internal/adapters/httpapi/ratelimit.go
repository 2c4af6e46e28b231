package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client token bucket. Clients are keyed by remote IP,
// so middleware.RealIP must run first when the service sits behind a proxy.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	clients sync.Map // map[string]*clientLimiter
}

type clientLimiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{rps: rate.Limit(rps), burst: burst, now: time.Now}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := rl.now()
	v, _ := rl.clients.LoadOrStore(key, &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)})
	cl := v.(*clientLimiter)
	cl.mu.Lock()
	cl.lastSeen = now
	cl.mu.Unlock()
	return cl.limiter
}

// Sweep drops clients idle for longer than idle and returns how many were removed.
func (rl *RateLimiter) Sweep(idle time.Duration) int {
	cutoff := rl.now().Add(-idle)
	n := 0
	rl.clients.Range(func(key, value any) bool {
		cl := value.(*clientLimiter)
		cl.mu.Lock()
		stale := cl.lastSeen.Before(cutoff)
		cl.mu.Unlock()
		if stale {
			rl.clients.Delete(key)
			n++
		}
		return true
	})
	return n
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := rl.limiterFor(clientIP(r))
		now := rl.now()

		res := lim.ReserveN(now, 1)
		if !res.OK() {
			writeTooManyRequests(w, r, 0)
			return
		}
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			writeTooManyRequests(w, r, int(delay.Seconds())+1)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(lim.TokensAt(now))))
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfterSecs int) {
	if retryAfterSecs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	}
	w.Header().Set("X-RateLimit-Remaining", "0")
	writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
}
