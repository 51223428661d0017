// Package ratelimit bounds per-identity request volume with a
// fixed-window counter.
//
// State lives in process memory, so limits are only correct for a single
// running instance. That matches the gateway's deployment model; running
// replicas behind a balancer would need a shared store instead.
package ratelimit

import (
	"sync"
	"time"

	"porthole/pkg/logging"
)

// Config configures a limiter.
type Config struct {
	// Max admitted requests per identity within one window.
	Max int
	// Window is the fixed counting window.
	Window time.Duration
	// CleanupInterval is how often idle buckets are reclaimed
	// (default: 1 minute).
	CleanupInterval time.Duration
	// Logger for rate limit events.
	Logger logging.Logger
}

// bucket tracks admitted requests for one identity within the current
// window. windowResetAt is unix millis.
type bucket struct {
	count         int
	windowResetAt int64
}

// Limiter is a fixed-window rate limiter keyed by identity (user id when
// authenticated, client address otherwise).
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	stopCh   chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

// New creates a limiter and starts its cleanup loop.
func New(cfg Config) *Limiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	l := &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	go l.cleanupLoop()

	return l
}

// Stop stops the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Allow admits or rejects one request for the identity.
// Returns: allowed, remaining requests in the window, and seconds until
// the window resets (for Retry-After / X-RateLimit-Reset headers).
func (l *Limiter) Allow(identity string) (allowed bool, remaining int, resetSeconds int) {
	now := l.now().UnixMilli()
	windowMs := l.cfg.Window.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[identity]
	if !ok || now > b.windowResetAt {
		l.buckets[identity] = &bucket{count: 1, windowResetAt: now + windowMs}
		return true, l.cfg.Max - 1, int(windowMs / 1000)
	}

	resetSeconds = int((b.windowResetAt - now + 999) / 1000)
	if b.count >= l.cfg.Max {
		if l.cfg.Logger != nil {
			l.cfg.Logger.WithFields(logging.Fields{
				"identity":      identity,
				"limit":         l.cfg.Max,
				"reset_seconds": resetSeconds,
			}).Warn("Rate limit exceeded")
		}
		return false, 0, resetSeconds
	}

	b.count++
	return true, l.cfg.Max - b.count, resetSeconds
}

// Max reports the configured per-window ceiling.
func (l *Limiter) Max() int {
	return l.cfg.Max
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// cleanup drops buckets whose window ended more than one cleanup
// interval ago.
func (l *Limiter) cleanup() {
	threshold := l.now().UnixMilli() - l.cfg.CleanupInterval.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()
	for identity, b := range l.buckets {
		if b.windowResetAt < threshold {
			delete(l.buckets, identity)
		}
	}
}

// size reports the bucket count; test hook.
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
