// Package middleware provides HTTP middleware for the catalog server.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	HeaderRateLimitLimit = "X-RateLimit-Limit"
	HeaderRetryAfter     = "Retry-After"

	defaultCleanupInterval = 5 * time.Minute
)

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// BurstSize defaults to the ceiling of RequestsPerSecond.
	BurstSize int `yaml:"burst_size"`
	// TrustedProxies are IPs or CIDR ranges whose X-Forwarded-For header is honored.
	TrustedProxies []string `yaml:"trusted_proxies,omitempty"`
}

// ApplyDefaults fills in the rate and burst when unset.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}

	if c.BurstSize <= 0 {
		c.BurstSize = max(1, int(c.RequestsPerSecond+0.999))
	}
}

// RateLimiter limits requests per client IP with a token bucket each.
type RateLimiter struct {
	log     logrus.FieldLogger
	cfg     RateLimitConfig
	trusted []*net.IPNet

	mu      sync.Mutex
	clients map[string]*clientEntry
	stopCh  chan struct{}
	once    sync.Once
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop. Invalid
// trusted proxy entries are logged and skipped.
func NewRateLimiter(log logrus.FieldLogger, cfg RateLimitConfig) *RateLimiter {
	cfg.ApplyDefaults()

	rl := &RateLimiter{
		log:     log.WithField("component", "rate-limiter"),
		cfg:     cfg,
		clients: make(map[string]*clientEntry, 64),
		stopCh:  make(chan struct{}),
	}

	for _, p := range cfg.TrustedProxies {
		if !strings.Contains(p, "/") {
			if strings.Contains(p, ":") {
				p += "/128"
			} else {
				p += "/32"
			}
		}

		_, ipNet, err := net.ParseCIDR(p)
		if err != nil {
			rl.log.WithField("proxy", p).Warn("Ignoring invalid trusted proxy")

			continue
		}

		rl.trusted = append(rl.trusted, ipNet)
	}

	go rl.cleanupLoop()

	return rl
}

// Middleware enforces the limit. It is a pass-through when disabled.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	limit := strconv.FormatFloat(rl.cfg.RequestsPerSecond, 'f', 2, 64)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := rl.clientIP(r)

		w.Header().Set(HeaderRateLimitLimit, limit)

		if !rl.allow(clientIP) {
			rl.log.WithField("client_ip", clientIP).Debug("Rate limit exceeded")

			w.Header().Set(HeaderRetryAfter, "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()

	entry, ok := rl.clients[key]
	if !ok {
		entry = &clientEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.BurstSize),
		}
		rl.clients[key] = entry
	}

	entry.lastUsed = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// clientIP returns the remote IP, or the first X-Forwarded-For hop when the
// request came through a trusted proxy.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	if !rl.isTrusted(remoteIP) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return remoteIP
}

func (rl *RateLimiter) isTrusted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, ipNet := range rl.trusted {
		if ipNet.Contains(parsed) {
			return true
		}
	}

	return false
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup(time.Now().Add(-defaultCleanupInterval))
		}
	}
}

// cleanup drops clients idle since before cutoff.
func (rl *RateLimiter) cleanup(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0

	for key, entry := range rl.clients {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}

	if removed > 0 {
		rl.log.WithFields(logrus.Fields{
			"removed":   removed,
			"remaining": len(rl.clients),
		}).Debug("Rate limiter cleanup completed")
	}
}

// Close stops the cleanup loop.
func (rl *RateLimiter) Close() error {
	rl.once.Do(func() { close(rl.stopCh) })

	return nil
}
