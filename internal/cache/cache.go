package cache

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
)

const DefaultMaxPathLength = 512

type Config struct {
	// MaxSizePow2 bounds the cache at roughly 2^MaxSizePow2 bytes of paths.
	MaxSizePow2 int
	// MaxPathLength is the longest raw path worth remembering. Longer paths
	// are normalized on every request. Zero means DefaultMaxPathLength.
	MaxPathLength int
	// TTL expires one-off paths such as scanner probes. Zero keeps entries
	// until evicted.
	TTL time.Duration
}

// PathCache memoizes raw request paths to their normalized endpoint form.
// Entries are keyed by path only: the query string and fragment never
// change the normalized form, so "/a/1?x=1" and "/a/1" share one entry.
type PathCache struct {
	cache         *ristretto.Cache
	maxPathLength int
	ttl           time.Duration
	skipped       atomic.Uint64
}

func New(cfg Config) (*PathCache, error) {
	if cfg.MaxPathLength <= 0 {
		cfg.MaxPathLength = DefaultMaxPathLength
	}
	maxCost := max(1, int64(1)<<cfg.MaxSizePow2)
	numCounters := max(1, maxCost/50) // paths average well under 50 bytes

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        numCounters,
		MaxCost:            maxCost,
		BufferItems:        64,
		Metrics:            true,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &PathCache{cache: cache, maxPathLength: cfg.MaxPathLength, ttl: cfg.TTL}, nil
}

func (c *PathCache) Get(rawPath string) (string, bool) {
	val, found := c.cache.Get(pathKey(rawPath))
	if !found {
		return "", false
	}
	normalized, ok := val.(string)
	return normalized, ok
}

// Set stores a mapping. Admission is probabilistic, so a later Get may miss.
// Paths over the length limit are skipped and counted.
func (c *PathCache) Set(rawPath, normalized string) {
	key := pathKey(rawPath)
	if len(key) > c.maxPathLength {
		c.skipped.Add(1)
		return
	}
	// Cost is what the entry pins in memory: both strings.
	c.cache.SetWithTTL(key, normalized, int64(len(key)+len(normalized)), c.ttl)
}

// Wait blocks until buffered writes are applied.
func (c *PathCache) Wait() {
	c.cache.Wait()
}

func (c *PathCache) Clear() {
	c.cache.Clear()
}

func (c *PathCache) Close() {
	c.cache.Close()
}

func (c *PathCache) Stats() (hits, misses uint64, ratio float64) {
	metrics := c.cache.Metrics
	return metrics.Hits(), metrics.Misses(), metrics.Ratio()
}

// Skipped counts paths refused for being too long.
func (c *PathCache) Skipped() uint64 {
	return c.skipped.Load()
}

func pathKey(rawPath string) string {
	if i := strings.IndexAny(rawPath, "?#"); i >= 0 {
		return rawPath[:i]
	}
	return rawPath
}
