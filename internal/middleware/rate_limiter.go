package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── Fixed-window rate limiter ─────────────────────────────────────────────────

// ipEntry tracks request counts per client IP within one window.
type ipEntry struct {
	count     int
	windowEnd time.Time
}

// RateLimiter counts requests per client IP. Each route group that needs its
// own budget (login, public endpoints, the whole API) gets its own instance.
type RateLimiter struct {
	name    string
	limit   int
	window  time.Duration
	message string

	mu      sync.Mutex
	entries map[string]*ipEntry
	now     func() time.Time
}

func NewRateLimiter(name string, limit int, window time.Duration, message string) *RateLimiter {
	if message == "" {
		message = "Too many requests. Try again shortly."
	}
	return &RateLimiter{
		name:    name,
		limit:   limit,
		window:  window,
		message: message,
		entries: make(map[string]*ipEntry),
		now:     time.Now,
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() *RateLimiter {
	return NewRateLimiter("login", 20, time.Minute, "Too many login attempts. Try again in a minute.")
}

// Handler returns the gin middleware. A limit of zero or less disables it.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.limit <= 0 {
			c.Next()
			return
		}
		allowed, retryAfter := l.allow(c.ClientIP())
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.5)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.message))
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[ip]
	if !ok || now.After(entry.windowEnd) {
		entry = &ipEntry{windowEnd: now.Add(l.window)}
		l.entries[ip] = entry
	}
	entry.count++
	if entry.count > l.limit {
		return false, entry.windowEnd.Sub(now)
	}
	return true, 0
}

// Purge removes entries whose window has ended and returns how many were dropped.
func (l *RateLimiter) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	purged := 0
	for ip, entry := range l.entries {
		if now.After(entry.windowEnd) {
			delete(l.entries, ip)
			purged++
		}
	}
	return purged
}

// ── Purge goroutine ───────────────────────────────────────────────────────────

// Run purges expired entries every interval until ctx is cancelled, so IPs
// that never return do not accumulate.
func (l *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Purge(); n > 0 {
				log.Debug().Str("limiter", l.name).Int("purged", n).Msg("rate limiter: purged expired entries")
			}
		}
	}
}
