package ratelimit

import (
	"fmt"
	"maps"
	"sync"
)

// Registry holds named limiters so maintenance jobs can reach all of them.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	order    []string
	opts     []Option
}

// NewRegistry creates a registry whose limiters are built with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
		opts:     opts,
	}
}

func (r *Registry) Register(cfg Config) (*Limiter, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: profile name is required", ErrInvalidConfig)
	}
	l, err := New(cfg, r.opts...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.limiters[cfg.Name]; exists {
		return nil, fmt.Errorf("%w: duplicate profile %q", ErrInvalidConfig, cfg.Name)
	}
	r.limiters[cfg.Name] = l
	r.order = append(r.order, cfg.Name)
	return l, nil
}

func (r *Registry) Get(name string) (*Limiter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.limiters[name]
	return l, ok
}

// Names lists registered profiles in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// SweepAll sweeps every limiter and returns removed counts by profile.
func (r *Registry) SweepAll() map[string]int {
	r.mu.RLock()
	limiters := maps.Clone(r.limiters)
	r.mu.RUnlock()

	removed := make(map[string]int, len(limiters))
	for name, l := range limiters {
		removed[name] = l.Sweep()
	}
	return removed
}
