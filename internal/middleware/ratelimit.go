package middleware

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"
)

// tokenBucket is a classic refill-on-demand token bucket.
type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(maxTokens, refillRate float64) *tokenBucket {
	return &tokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// allow consumes a token when one is available.
func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// IPRateLimiter limits requests per client IP. It guards the auth routes,
// which run before any session exists, so the client address is the only
// usable key.
type IPRateLimiter struct {
	buckets       map[string]*tokenBucket
	mu            sync.RWMutex
	maxTokens     float64
	refillRate    float64
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	maxIdleTime   time.Duration
}

// NewIPRateLimiter allows maxRequestsPerMinute per client IP.
func NewIPRateLimiter(maxRequestsPerMinute float64) *IPRateLimiter {
	limiter := &IPRateLimiter{
		buckets:     make(map[string]*tokenBucket),
		maxTokens:   maxRequestsPerMinute,
		refillRate:  maxRequestsPerMinute / 60.0,
		stopCleanup: make(chan struct{}),
		maxIdleTime: 10 * time.Minute,
	}

	limiter.cleanupTicker = time.NewTicker(5 * time.Minute)
	go limiter.cleanupRoutine()

	return limiter
}

// cleanupRoutine drops buckets idle past maxIdleTime so the map cannot grow
// without bound.
func (rl *IPRateLimiter) cleanupRoutine() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.mu.Lock()
			now := time.Now()
			for ip, bucket := range rl.buckets {
				if now.Sub(bucket.lastRefill) > rl.maxIdleTime {
					delete(rl.buckets, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *IPRateLimiter) Stop() {
	rl.cleanupTicker.Stop()
	close(rl.stopCleanup)
}

func (rl *IPRateLimiter) getBucket(ip string) *tokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.buckets[ip]
	rl.mu.RUnlock()

	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Re-check after acquiring the write lock.
	if bucket, exists = rl.buckets[ip]; exists {
		return bucket
	}

	bucket = newTokenBucket(rl.maxTokens, rl.refillRate)
	rl.buckets[ip] = bucket
	return bucket
}

// Allow reports whether a request from the given IP may proceed.
func (rl *IPRateLimiter) Allow(ip string) bool {
	return rl.getBucket(ip).allow()
}

// clientIP strips the port; chi's RealIP middleware has already rewritten
// RemoteAddr when a proxy header is present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit applies the limiter to every request passing through it.
func RateLimit(limiter *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.Allow(ip) {
				log.Printf("SECURITY: Rate limit exceeded for IP %s on %s", ip, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
