// Package ratelimit implements fixed-window request counting per caller key.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var ErrInvalidConfig = errors.New("invalid rate limit config")

const DefaultMessage = "Too many requests, please try again later."

// Config describes one limiter profile.
type Config struct {
	Name        string        `yaml:"name"`
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"max_requests"`
	Message     string        `yaml:"message"`
	// SkipSuccessfulRequests refunds requests answered with status < 400.
	SkipSuccessfulRequests bool `yaml:"skip_successful_requests"`
	// SkipFailedRequests refunds requests answered with status >= 400.
	SkipFailedRequests bool `yaml:"skip_failed_requests"`
}

func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: %q window must be positive, got %s", ErrInvalidConfig, c.Name, c.Window)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: %q max requests must be positive, got %d", ErrInvalidConfig, c.Name, c.MaxRequests)
	}
	return nil
}

// Entry is the counting state for one key.
type Entry struct {
	Count     int
	ResetTime time.Time
}

// Decision is the outcome of counting one request.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetTime time.Time
	// RetryAfter is whole seconds until the window resets, rounded up.
	// Zero when the request is allowed.
	RetryAfter int
	Message    string
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// Limiter counts requests per key within fixed windows.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry
}

func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Message == "" {
		cfg.Message = DefaultMessage
	}

	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) Name() string   { return l.cfg.Name }
func (l *Limiter) Config() Config { return l.cfg }

// Hit counts one request for key. A key without a live window starts a
// new one. Rejected requests still count.
func (l *Limiter) Hit(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || e.ResetTime.Before(now) {
		e = &Entry{ResetTime: now.Add(l.cfg.Window)}
		l.entries[key] = e
	}
	e.Count++

	d := Decision{
		Allowed:   e.Count <= l.cfg.MaxRequests,
		Limit:     l.cfg.MaxRequests,
		Remaining: max(0, l.cfg.MaxRequests-e.Count),
		ResetTime: e.ResetTime,
		Message:   l.cfg.Message,
	}
	if !d.Allowed {
		d.RetryAfter = retryAfterSeconds(e.ResetTime.Sub(now))
	}
	return d
}

// Complete applies the skip rules once a forwarded request has a final
// status. It returns true when the request was refunded. Keys whose window
// expired or was swept are left alone.
func (l *Limiter) Complete(key string, status int) bool {
	failed := status >= 400
	if !(failed && l.cfg.SkipFailedRequests) && !(!failed && l.cfg.SkipSuccessfulRequests) {
		return false
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || e.ResetTime.Before(now) || e.Count == 0 {
		return false
	}
	e.Count--
	return true
}

// Peek returns a copy of the entry for key without counting.
func (l *Limiter) Peek(key string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Sweep removes entries whose window has passed and reports how many.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.entries {
		if e.ResetTime.Before(now) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Len is the number of tracked keys, including expired ones not yet swept.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
