// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"inkpost/internal/httputil"
)

// MsgRateLimited is the error returned once a client exceeds its budget.
const MsgRateLimited = "Too many requests from this IP, please try again later."

// limiterEntry tracks request timestamps for a single client.
type limiterEntry struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// RateLimiter provides per-IP rate limiting using a sliding window held in
// process memory.
type RateLimiter struct {
	mu      sync.RWMutex
	clients map[string]*limiterEntry
	limit   int           // max requests per window
	window  time.Duration // sliding window duration
	stopCh  chan struct{}

	trustProxy bool
}

// NewRateLimiter creates a rate limiter that allows limit requests per window.
// It starts a background goroutine to clean up expired entries.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*limiterEntry),
		limit:   limit,
		window:  window,
		stopCh:  make(chan struct{}),
	}

	// Periodic cleanup of expired entries every 5 minutes.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.cleanup()
			case <-rl.stopCh:
				return
			}
		}
	}()

	return rl
}

// TrustProxy makes the limiter key on the address reported by a reverse
// proxy instead of the socket address. Enable it only when every request
// arrives through a proxy that sets X-Forwarded-For.
func (rl *RateLimiter) TrustProxy(on bool) *RateLimiter {
	rl.trustProxy = on
	return rl
}

// Stop terminates the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// allow checks whether the given key is within the rate limit and
// returns how many requests remain in its window.
func (rl *RateLimiter) allow(key string) (bool, int) {
	rl.mu.RLock()
	entry, exists := rl.clients[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Double-check after acquiring write lock.
		entry, exists = rl.clients[key]
		if !exists {
			entry = &limiterEntry{}
			rl.clients[key] = entry
		}
		rl.mu.Unlock()
	}

	now := time.Now()
	cutoff := now.Add(-rl.window)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// Remove expired timestamps.
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= rl.limit {
		return false, 0
	}

	entry.timestamps = append(entry.timestamps, now)
	return true, rl.limit - len(entry.timestamps)
}

// cleanup removes entries with no recent activity.
func (rl *RateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, entry := range rl.clients {
		entry.mu.Lock()
		hasRecent := false
		for _, ts := range entry.timestamps {
			if ts.After(cutoff) {
				hasRecent = true
				break
			}
		}
		entry.mu.Unlock()

		if !hasRecent {
			delete(rl.clients, key)
		}
	}
}

// Middleware returns an HTTP middleware that rate-limits by client IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, remaining := rl.allow(clientIP(r, rl.trustProxy))
		setLimitHeaders(w, rl.limit, remaining)
		if !ok {
			rejectRequest(w, rl.window)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HitCounter counts hits per key in fixed windows shared between API
// instances. kv.Counter implements it on Valkey.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// SharedRateLimiter rate-limits by client IP using a HitCounter, so the
// budget holds across every instance behind a load balancer. When the
// counter is unavailable requests are let through.
type SharedRateLimiter struct {
	counter HitCounter
	limit   int
	window  time.Duration

	trustProxy bool
}

// NewSharedRateLimiter creates a limiter allowing limit requests per
// fixed window.
func NewSharedRateLimiter(counter HitCounter, limit int, window time.Duration) *SharedRateLimiter {
	return &SharedRateLimiter{counter: counter, limit: limit, window: window}
}

// TrustProxy has the same meaning as RateLimiter.TrustProxy.
func (l *SharedRateLimiter) TrustProxy(on bool) *SharedRateLimiter {
	l.trustProxy = on
	return l
}

// Middleware returns an HTTP middleware that rate-limits by client IP.
func (l *SharedRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, l.trustProxy)
		n, resetIn, err := l.counter.Hit(r.Context(), ip, l.window)
		if err != nil {
			slog.Warn("rate limit counter unavailable", "error", err, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		remaining := l.limit - int(n)
		if remaining < 0 {
			remaining = 0
		}
		setLimitHeaders(w, l.limit, remaining)
		if n > int64(l.limit) {
			rejectRequest(w, resetIn)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setLimitHeaders(w http.ResponseWriter, limit, remaining int) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

func rejectRequest(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	httputil.Error(w, http.StatusTooManyRequests, MsgRateLimited)
}

// clientIP returns the address requests are counted against. By default
// that is the socket peer, since any client can write forwarding headers.
// Behind a trusted proxy the right-most X-Forwarded-For entry is used: it
// was appended by the proxy itself and cannot be forged by the client.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if idx := strings.LastIndexByte(xff, ','); idx != -1 {
				xff = xff[idx+1:]
			}
			if ip := strings.TrimSpace(xff); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
