// Package ratelimit paces REST requests against the chat service's
// per-route rate limits, learning each route's budget from response
// headers.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// bucket tracks the limit window for one route.
type bucket struct {
	remaining int
	limit     int
	resetAt   time.Time
	limiter   *rate.Limiter
	mu        sync.Mutex
}

// Limiter manages per-route rate limit buckets.
type Limiter struct {
	buckets map[string]*bucket
	mu      sync.RWMutex
	logger  *zap.Logger
}

// New creates a limiter with no learned buckets.
func New(logger *zap.Logger) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		logger:  logger,
	}
}

func (l *Limiter) getBucket(route string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[route]; ok {
		return b
	}

	// Until headers teach us the route's real budget, assume the global
	// default of 5 requests per second.
	b := &bucket{
		remaining: 5,
		limit:     5,
		resetAt:   time.Now().Add(time.Second),
		limiter:   rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
	l.buckets[route] = b
	return b
}

// Wait blocks until a request to the route may proceed, or the context is
// cancelled.
func (l *Limiter) Wait(ctx context.Context, route string) error {
	b := l.getBucket(route)

	b.mu.Lock()
	exhaustedUntil := time.Time{}
	if b.remaining <= 0 && time.Now().Before(b.resetAt) {
		exhaustedUntil = b.resetAt
	}
	limiter := b.limiter
	b.mu.Unlock()

	if !exhaustedUntil.IsZero() {
		l.logger.Warn("rate limit exhausted, waiting",
			zap.String("route", route),
			zap.Duration("wait", time.Until(exhaustedUntil)),
		)
		select {
		case <-time.After(time.Until(exhaustedUntil)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// Update records the route's budget from response headers.
func (l *Limiter) Update(route string, headers http.Header) {
	b := l.getBucket(route)

	b.mu.Lock()
	defer b.mu.Unlock()

	if v := headers.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			b.remaining = n
		}
	}
	if v := headers.Get("X-RateLimit-Limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			b.limit = n
		}
	}
	if v := headers.Get("X-RateLimit-Reset"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			b.resetAt = t
		} else if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			b.resetAt = time.Unix(n, 0)
		}
	}

	if b.limit > 0 {
		if window := time.Until(b.resetAt); window > 0 {
			perSecond := float64(b.limit) / window.Seconds()
			b.limiter = rate.NewLimiter(rate.Limit(perSecond), b.limit)
		}
	}
}

// Throttle handles a 429 response: the route's bucket is emptied until the
// advertised retry time.
func (l *Limiter) Throttle(route string, headers http.Header) time.Duration {
	b := l.getBucket(route)

	b.mu.Lock()
	defer b.mu.Unlock()

	var retryAfter time.Duration
	if v := headers.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			retryAfter = time.Duration(seconds) * time.Second
		}
	}
	if retryAfter <= 0 {
		retryAfter = time.Second
	}

	b.remaining = 0
	b.resetAt = time.Now().Add(retryAfter)

	l.logger.Warn("rate limited by API",
		zap.String("route", route),
		zap.Duration("retry_after", retryAfter),
	)
	return retryAfter
}
