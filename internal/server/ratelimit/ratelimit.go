// Package ratelimit provides per-client token bucket rate limiting for the HTTP API.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a token bucket. Tokens refill continuously at rate per second
// up to capacity.
type bucket struct {
	capacity float64
	rate     float64
	tokens   float64
	last     time.Time // last refill
	seen     time.Time // last request, for cleanup
}

func newBucket(capacity int, rate float64, now time.Time) *bucket {
	return &bucket{
		capacity: float64(capacity),
		rate:     rate,
		tokens:   float64(capacity),
		last:     now,
		seen:     now,
	}
}

func (b *bucket) refill(now time.Time) {
	b.tokens = min(b.capacity, b.tokens+now.Sub(b.last).Seconds()*b.rate)
	b.last = now
}

// take consumes one token if available. It reports the tokens left, when
// the bucket will be full again and how long until the next token.
func (b *bucket) take(now time.Time) (ok bool, remaining int, full time.Time, wait time.Duration) {
	b.refill(now)
	b.seen = now
	if b.tokens >= 1 {
		b.tokens--
		ok = true
	}
	full = now.Add(b.until(b.capacity))
	if !ok {
		wait = b.until(1)
	}
	return ok, int(b.tokens), full, wait
}

// until returns how long the bucket needs to hold n tokens.
func (b *bucket) until(n float64) time.Duration {
	missing := n - b.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / b.rate * float64(time.Second))
}

// Info describes the outcome of one Allow call. Limit is zero when the
// request was not metered.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter meters requests per client and route group.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket // "client|group" -> bucket

	stop chan struct{}
	once sync.Once
}

// NewLimiter creates a limiter. A nil config limits every route to 60
// requests a minute.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    fallbackLimit,
			DefaultWindow:   time.Minute,
			CleanupInterval: fallbackCleanup,
		}
	}

	l := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.sweep(config.CleanupInterval)
	}
	return l
}

// Allow reports whether clientID may make a method request to path now.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	cfg := l.config
	if !cfg.Enabled || cfg.Allow[clientID] {
		return true, Info{Allowed: true}
	}
	if cfg.Deny[clientID] {
		return false, Info{}
	}

	g := MatchGroup(method, path, cfg.Groups)
	if g == nil {
		g = &Group{Name: "default", Limit: cfg.DefaultLimit, Window: cfg.DefaultWindow}
	}
	if g.Limit <= 0 || g.Window <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	key := clientID + "|" + g.Name

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		capacity := g.Burst
		if capacity <= 0 {
			capacity = g.Limit
		}
		b = newBucket(capacity, float64(g.Limit)/g.Window.Seconds(), now)
		l.buckets[key] = b
	}
	allowed, remaining, full, wait := b.take(now)
	l.mu.Unlock()

	return allowed, Info{
		Allowed:    allowed,
		Limit:      g.Limit,
		Remaining:  remaining,
		ResetTime:  full,
		RetryAfter: wait,
	}
}

func (l *Limiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.evictIdle()
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets that have not been used for idleTTL.
func (l *Limiter) evictIdle() {
	cutoff := l.now().Add(-idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
