package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	clock := newFakeClock()
	r := NewRegistry(WithClock(clock.Now))

	general, err := r.Register(Config{Name: "general", Window: time.Minute, MaxRequests: 10})
	require.NoError(t, err)
	contact, err := r.Register(Config{Name: "contact", Window: time.Hour, MaxRequests: 5})
	require.NoError(t, err)

	_, err = r.Register(Config{Name: "general", Window: time.Minute, MaxRequests: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = r.Register(Config{Window: time.Minute, MaxRequests: 1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = r.Register(Config{Name: "broken", Window: time.Minute})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.Equal(t, []string{"general", "contact"}, r.Names())

	got, ok := r.Get("contact")
	require.True(t, ok)
	assert.Same(t, contact, got)
	_, ok = r.Get("missing")
	assert.False(t, ok)

	general.Hit("a")
	general.Hit("b")
	contact.Hit("a")
	clock.Advance(2 * time.Minute)

	assert.Equal(t, map[string]int{"general": 2, "contact": 0}, r.SweepAll())
	assert.Equal(t, 0, general.Len())
	assert.Equal(t, 1, contact.Len())
}
