package server

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"snapscreen/internal/errors"

	"golang.org/x/time/rate"
)

const limiterIdleAfter = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	rate    rate.Limit
	burst   int
	denied  int64
	done    chan struct{}
	once    sync.Once
	logger  *errors.Logger
	now     func() time.Time
}

// NewRateLimiter allows requestsPerMin per key with bursts of burstCapacity.
// Idle keys are forgotten after ten minutes.
func NewRateLimiter(requestsPerMin, burstCapacity int, logger *errors.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		rate:    rate.Limit(float64(requestsPerMin) / 60.0),
		burst:   max(burstCapacity, 1),
		done:    make(chan struct{}),
		logger:  logger,
		now:     time.Now,
	}
	go rl.evictLoop(limiterIdleAfter)
	return rl
}

// Allow takes a token for key. When none is left it reports how long the
// client should wait before the next request can pass.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	res := c.limiter.ReserveN(now, 1)
	if !res.OK() {
		rl.denied++
		return false, time.Minute
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		rl.denied++
		return false, delay
	}
	return true, 0
}

// GetStats reports the limiter settings and how many clients are tracked
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"active_clients":    len(rl.clients),
		"requests_per_min":  float64(rl.rate) * 60.0,
		"burst_capacity":    rl.burst,
		"requests_rejected": rl.denied,
	}
}

func (rl *RateLimiter) evictLoop(idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(idle)
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
	rl.logger.Debug("Evicted idle rate limit clients", "remaining", len(rl.clients))
}

// Close stops the eviction goroutine
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}

// rateLimitMiddleware rejects clients that exceed their bucket with 429 and a
// Retry-After header in whole seconds.
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" {
				next(w, r)
				return
			}

			allowed, wait := s.RateLimiter.Allow(key)
			if !allowed {
				s.Logger.Info("Rate limit exceeded",
					"endpoint", r.URL.Path,
					"client_ip", getClientIP(r),
					"retry_after", wait.String())
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
				return
			}
			next(w, r)
		}
	}
}

// rateLimitKey buckets by credential when asked to, so users behind one
// proxy do not share a bucket. Credentials are hashed before they are used
// as map keys.
func rateLimitKey(r *http.Request, byCredential, byIP bool) string {
	if byCredential {
		cred := r.Header.Get("X-API-Key")
		if cred == "" {
			cred, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if cred = strings.TrimSpace(cred); cred != "" {
			sum := sha256.Sum256([]byte(cred))
			return "cred:" + hex.EncodeToString(sum[:8])
		}
	}
	if byIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// getClientIP prefers the first valid X-Forwarded-For entry, then X-Real-IP,
// then the connection address.
func getClientIP(r *http.Request) string {
	for candidate := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := strings.TrimSpace(candidate); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
