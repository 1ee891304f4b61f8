// Package ratelimit provides per-client rate limiting using a token bucket.
// Generation endpoints get a much tighter budget than read endpoints since
// each generation fans out to paid LLM calls.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// Info describes the limiter state returned with each decision.
type Info struct {
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config controls the limiter. Zero limits disable the corresponding class.
type Config struct {
	Enabled bool

	// GenerateLimit caps generation requests (generate/regenerate) per
	// client per GenerateWindow.
	GenerateLimit  int
	GenerateWindow time.Duration

	// DefaultLimit caps all other requests per client per DefaultWindow.
	DefaultLimit  int
	DefaultWindow time.Duration

	CleanupInterval time.Duration
}

// DefaultConfig returns the limiter defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		GenerateLimit:   30,
		GenerateWindow:  time.Hour,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

type bucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func newBucket(limit int, window time.Duration) *bucket {
	return &bucket{
		capacity:   float64(limit),
		refillRate: float64(limit) / window.Seconds(),
		tokens:     float64(limit),
		lastRefill: time.Now(),
	}
}

func (b *bucket) take() (bool, Info) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now

	allowed := b.tokens >= 1.0
	if allowed {
		b.tokens -= 1.0
	}

	info := Info{
		Limit:     int(b.capacity),
		Remaining: int(b.tokens),
	}
	if b.tokens < b.capacity {
		untilFull := (b.capacity - b.tokens) / b.refillRate
		info.ResetTime = now.Add(time.Duration(untilFull * float64(time.Second)))
	} else {
		info.ResetTime = now
	}
	if !allowed {
		untilNext := (1.0 - b.tokens) / b.refillRate
		info.RetryAfter = time.Duration(untilNext * float64(time.Second))
	}
	return allowed, info
}

func (b *bucket) idleSince(cutoff time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRefill.Before(cutoff)
}

// Limiter tracks one bucket per (client, endpoint class).
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*bucket
	done    chan struct{}
	once    sync.Once
}

// NewLimiter creates a limiter and starts its cleanup goroutine.
func NewLimiter(cfg Config) *Limiter {
	l := &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	if cfg.Enabled && cfg.CleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Allow reports whether the client may perform a request against path with
// the given method.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.cfg.Enabled {
		return true, Info{}
	}
	if path == "/health" {
		return true, Info{}
	}

	limit, window, class := l.classify(path, method)
	if limit <= 0 {
		return true, Info{}
	}

	key := clientID + "|" + class

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = newBucket(limit, window)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	return b.take()
}

func (l *Limiter) classify(path, method string) (int, time.Duration, string) {
	if method == "POST" && (strings.HasSuffix(path, "/generate") || strings.HasSuffix(path, "/regenerate")) {
		return l.cfg.GenerateLimit, l.cfg.GenerateWindow, "generate"
	}
	return l.cfg.DefaultLimit, l.cfg.DefaultWindow, "default"
}

// Stop terminates the cleanup goroutine.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.done) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *Limiter) cleanup() {
	cutoff := time.Now().Add(-2 * l.cfg.CleanupInterval)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.idleSince(cutoff) {
			delete(l.buckets, key)
		}
	}
}
