package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/martyndavies/hubapi-example-langchain/internal/models"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key. Each bucket holds a
// full minute's allowance and refills evenly.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	every   rate.Limit
}

func NewRateLimiter(limitPerMinute int) *RateLimiter {
	if limitPerMinute < 1 {
		limitPerMinute = 1
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   limitPerMinute,
		every:   rate.Every(time.Minute / time.Duration(limitPerMinute)),
	}
}

func (rl *RateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Evict idle clients opportunistically.
	if len(rl.clients) > 1024 {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > 5*time.Minute {
				delete(rl.clients, k)
			}
		}
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.every, rl.limit)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Allow consumes one token for key and reports the tokens left.
func (rl *RateLimiter) Allow(key string) (remaining int, ok bool) {
	now := time.Now()
	lim := rl.get(key, now)
	ok = lim.AllowN(now, 1)
	remaining = int(lim.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return remaining, ok
}

// RateLimit keys clients by the API key in keyHeader, falling back to the
// client IP.
func RateLimit(limitPerMinute int, keyHeader string) func(http.Handler) http.Handler {
	if keyHeader == "" {
		keyHeader = "X-API-Key"
	}
	rl := NewRateLimiter(limitPerMinute)
	limit := strconv.Itoa(rl.limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(keyHeader)
			if key == "" {
				key = clientIP(r)
			}

			remaining, ok := rl.Allow(key)
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if !ok {
				w.Header().Set("Retry-After", "60")
				models.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
