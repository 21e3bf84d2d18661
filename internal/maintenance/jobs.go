package maintenance

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

type Sweeper interface {
	SweepAll() map[string]int
}

// SweepJob removes expired rate-limit windows from every limiter.
func SweepJob(schedule string, sweeper Sweeper, logger *slog.Logger) Job {
	return Job{
		Name:     "rate_limit_sweep",
		Schedule: schedule,
		Run: func(context.Context) error {
			removed := sweeper.SweepAll()
			total := 0
			attrs := make([]any, 0, len(removed)+1)
			for profile, n := range removed {
				total += n
				attrs = append(attrs, slog.Int(profile, n))
			}
			if total == 0 {
				logger.Debug("rate limit sweep found nothing to remove")
				return nil
			}
			logger.Info("rate limit sweep removed expired windows",
				slog.Int("removed", total),
				slog.Group("profiles", attrs...),
			)
			return nil
		},
	}
}

type CacheStats interface {
	Stats() (hits, misses uint64, ratio float64)
}

type PerformanceLogger interface {
	Performance(operation string, duration, threshold time.Duration, data map[string]any)
}

// RuntimeStatsJob samples goroutine, heap and path-cache statistics and
// reports them through the performance log. Sampling slower than threshold
// is reported as a warning.
func RuntimeStatsJob(schedule string, cache CacheStats, perf PerformanceLogger, threshold time.Duration) Job {
	return Job{
		Name:     "runtime_stats",
		Schedule: schedule,
		Run: func(context.Context) error {
			start := time.Now()

			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)

			data := map[string]any{
				"goroutines":    runtime.NumGoroutine(),
				"heap_alloc_mb": float64(memStats.HeapAlloc) / 1024 / 1024,
				"num_gc":        memStats.NumGC,
			}
			if cache != nil {
				hits, misses, ratio := cache.Stats()
				data["path_cache_hits"] = hits
				data["path_cache_misses"] = misses
				data["path_cache_hit_ratio"] = ratio
			}

			perf.Performance("runtime_stats", time.Since(start), threshold, data)
			return nil
		},
	}
}
