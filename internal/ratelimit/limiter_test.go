package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(t *testing.T, cfg Config, clock *fakeClock) *Limiter {
	t.Helper()
	l, err := New(cfg, WithClock(clock.Now))
	require.NoError(t, err)
	return l
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero window", Config{Name: "x", Window: 0, MaxRequests: 1}},
		{"negative window", Config{Name: "x", Window: -time.Second, MaxRequests: 1}},
		{"zero max", Config{Name: "x", Window: time.Minute, MaxRequests: 0}},
		{"negative max", Config{Name: "x", Window: time.Minute, MaxRequests: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNew_DefaultMessage(t *testing.T) {
	l, err := New(Config{Name: "x", Window: time.Minute, MaxRequests: 1})
	require.NoError(t, err)
	assert.Equal(t, DefaultMessage, l.Config().Message)
}

func TestHit_AllowsUpToMax(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(t, Config{Name: "general", Window: 15 * time.Minute, MaxRequests: 3, Message: "slow down"}, clock)

	for i := 1; i <= 3; i++ {
		d := l.Hit("1.2.3.4")
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 3-i, d.Remaining)
		assert.Equal(t, clock.Now().Add(15*time.Minute), d.ResetTime)
		assert.Zero(t, d.RetryAfter)
	}

	d := l.Hit("1.2.3.4")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, "slow down", d.Message)
	assert.Equal(t, 900, d.RetryAfter)

	e, ok := l.Peek("1.2.3.4")
	require.True(t, ok)
	assert.Equal(t, 4, e.Count)
}

func TestHit_FiveThenReject(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(t, Config{Name: "form", Window: time.Hour, MaxRequests: 5}, clock)

	for range 5 {
		require.True(t, l.Hit("k").Allowed)
	}
	clock.Advance(10 * time.Minute)

	d := l.Hit("k")
	assert.False(t, d.Allowed)
	assert.Equal(t, 3000, d.RetryAfter)
}

func TestHit_RetryAfterRoundsUp(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(t, Config{Name: "x", Window: 10 * time.Second, MaxRequests: 1}, clock)

	l.Hit("k")
	clock.Advance(8*time.Second + 500*time.Millisecond)

	d := l.Hit("k")
	assert.False(t, d.Allowed)
	assert.Equal(t, 2, d.RetryAfter)
}

func TestHit_WindowResets(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(t, Config{Name: "x", Window: time.Minute, MaxRequests: 2}, clock)

	l.Hit("k")
	l.Hit("k")
	assert.False(t, l.Hit("k").Allowed)

	clock.Advance(time.Minute)
	assert.False(t, l.Hit("k").Allowed, "window end is inclusive")

	clock.Advance(time.Millisecond)
	d := l.Hit("k")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetTime)
}

func TestHit_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(t, Config{Name: "x", Window: time.Minute, MaxRequests: 1}, clock)

	assert.True(t, l.Hit("a").Allowed)
	assert.False(t, l.Hit("a").Allowed)
	assert.True(t, l.Hit("b").Allowed)
}

func TestComplete_SkipRules(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		status      int
		wantRefund  bool
		wantCounted int
	}{
		{"no skip flags", Config{}, 200, false, 1},
		{"skip failed on failure", Config{SkipFailedRequests: true}, 422, true, 0},
		{"skip failed on success", Config{SkipFailedRequests: true}, 201, false, 1},
		{"skip successful on success", Config{SkipSuccessfulRequests: true}, 399, true, 0},
		{"skip successful on failure", Config{SkipSuccessfulRequests: true}, 400, false, 1},
		{"both on server error", Config{SkipSuccessfulRequests: true, SkipFailedRequests: true}, 500, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			cfg := tt.cfg
			cfg.Name, cfg.Window, cfg.MaxRequests = "x", time.Minute, 5
			l := newLimiter(t, cfg, clock)

			l.Hit("k")
			assert.Equal(t, tt.wantRefund, l.Complete("k", tt.status))

			e, ok := l.Peek("k")
			require.True(t, ok)
			assert.Equal(t, tt.wantCounted, e.Count)
		})
	}
}

func TestComplete_RefundedRequestsDoNotExhaust(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(t, Config{Name: "booking", Window: time.Hour, MaxRequests: 2, SkipFailedRequests: true}, clock)

	for range 10 {
		require.True(t, l.Hit("k").Allowed)
		l.Complete("k", 400)
	}
	assert.True(t, l.Hit("k").Allowed)
	assert.True(t, l.Hit("k").Allowed)
	assert.False(t, l.Hit("k").Allowed)
}

func TestComplete_NoOpAfterExpiryOrSweep(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(t, Config{Name: "x", Window: time.Minute, MaxRequests: 5, SkipFailedRequests: true}, clock)

	l.Hit("k")
	clock.Advance(2 * time.Minute)
	assert.False(t, l.Complete("k", 500))

	assert.Equal(t, 1, l.Sweep())
	assert.False(t, l.Complete("k", 500))
	_, ok := l.Peek("k")
	assert.False(t, ok)
}

func TestComplete_NeverNegative(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(t, Config{Name: "x", Window: time.Minute, MaxRequests: 5, SkipSuccessfulRequests: true}, clock)

	l.Hit("k")
	assert.True(t, l.Complete("k", 200))
	assert.False(t, l.Complete("k", 200))

	e, _ := l.Peek("k")
	assert.Equal(t, 0, e.Count)
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(t, Config{Name: "x", Window: time.Minute, MaxRequests: 5}, clock)

	l.Hit("old")
	clock.Advance(30 * time.Second)
	l.Hit("fresh")
	clock.Advance(31 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
	_, ok := l.Peek("fresh")
	assert.True(t, ok)
}

func TestHit_Concurrent(t *testing.T) {
	l, err := New(Config{Name: "x", Window: time.Hour, MaxRequests: 100})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for g := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 30 {
				if l.Hit("shared").Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
				l.Hit(fmt.Sprintf("own-%d", g))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
	assert.Equal(t, 11, l.Len())
}
