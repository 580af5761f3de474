package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"arena-brawl/internal/metrics"
)

// RateLimitConfig configures the IP-based rate limiter
type RateLimitConfig struct {
	RequestsPerSecond float64       // Requests allowed per second per IP
	Burst             int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up stale limiters
}

// DefaultRateLimitConfig returns production-safe defaults
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	rejectedCount atomic.Uint64
	allowedCount  atomic.Uint64
}

// NewIPRateLimiter creates a new IP-based rate limiter and starts its
// cleanup goroutine. Call Stop to release it.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the rate limiter cleanup goroutine
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now().UnixNano()

	if v, ok := rl.limiters.Load(ip); ok {
		e := v.(*ipLimiterEntry)
		e.lastSeen.Store(now)
		return e.limiter
	}

	entry := &ipLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
	}
	entry.lastSeen.Store(now)

	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes rate limiters that haven't been used recently
func (rl *IPRateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.CleanupInterval * 2).UnixNano()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*ipLimiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow checks if a request from the given IP should be allowed
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.getLimiter(ip).Allow() {
		rl.allowedCount.Add(1)
		return true
	}
	rl.rejectedCount.Add(1)
	return false
}

// Middleware returns an HTTP middleware for rate limiting
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			metrics.RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Stats returns rate limiter counters
func (rl *IPRateLimiter) Stats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  rl.allowedCount.Load(),
		"rejected": rl.rejectedCount.Load(),
	}
}

// GetClientIP extracts the client IP from an HTTP request.
// Handles X-Forwarded-For header for proxied requests.
func GetClientIP(r *http.Request) string {
	// CAUTION: spoofable unless behind a trusted proxy
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ConnLimiter caps concurrent websocket connections, in total and per IP.
type ConnLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxTotal int
	maxPerIP int

	rejectedCount atomic.Uint64
}

// NewConnLimiter creates a connection limiter. Non-positive caps disable
// that check.
func NewConnLimiter(maxTotal, maxPerIP int) *ConnLimiter {
	return &ConnLimiter{
		perIP:    make(map[string]int),
		maxTotal: maxTotal,
		maxPerIP: maxPerIP,
	}
}

// Acquire reserves a slot for ip. The returned reason is a bounded metric
// label when the slot is refused.
func (cl *ConnLimiter) Acquire(ip string) (ok bool, reason string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.maxTotal > 0 && cl.total >= cl.maxTotal {
		cl.rejectedCount.Add(1)
		return false, "ws_total_limit"
	}
	if cl.maxPerIP > 0 && cl.perIP[ip] >= cl.maxPerIP {
		cl.rejectedCount.Add(1)
		return false, "ws_ip_limit"
	}
	cl.total++
	cl.perIP[ip]++
	return true, ""
}

// Release frees a slot taken by Acquire.
func (cl *ConnLimiter) Release(ip string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if n := cl.perIP[ip]; n > 1 {
		cl.perIP[ip] = n - 1
	} else {
		delete(cl.perIP, ip)
	}
	if cl.total > 0 {
		cl.total--
	}
}

// Count returns the number of held slots.
func (cl *ConnLimiter) Count() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.total
}

// CountFor returns the number of slots held by ip.
func (cl *ConnLimiter) CountFor(ip string) int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.perIP[ip]
}

// OriginChecker matches request origins against an allow-list. A "*" entry
// allows everything; entries may use a leading "*." for subdomains or a
// trailing ":*" for any port.
type OriginChecker struct {
	allowed []string
}

// NewOriginChecker builds a checker from an allow-list.
func NewOriginChecker(allowed []string) *OriginChecker {
	return &OriginChecker{allowed: allowed}
}

// Allow reports whether origin may connect. Requests without an Origin
// header come from non-browser clients and are allowed.
func (oc *OriginChecker) Allow(origin string) bool {
	if origin == "" {
		return true
	}
	for _, a := range oc.allowed {
		switch {
		case a == "*", a == origin:
			return true
		case strings.HasSuffix(a, ":*"):
			base := strings.TrimSuffix(a, ":*")
			if origin == base || strings.HasPrefix(origin, base+":") {
				return true
			}
		case strings.Contains(a, "://*."):
			scheme, host, _ := strings.Cut(a, "*")
			if strings.HasPrefix(origin, scheme) && strings.HasSuffix(origin, host) {
				return true
			}
		}
	}
	return false
}
