package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opscore/internal/config"
	"opscore/internal/logging"
	"opscore/internal/ratelimit"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.LoadFromEnvironment(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Logger.MaxEntries)
	assert.Equal(t, 2*time.Second, cfg.Monitor.SlowRequest)
	assert.Equal(t, time.Second, cfg.Monitor.MaxAvgResponseTime)
	assert.InDelta(t, 5.0, cfg.Monitor.MaxErrorRate, 1e-9)
	assert.Equal(t, time.Minute, cfg.Monitor.MinUptime)
	assert.Equal(t, 512, cfg.Monitor.PathCacheMaxPath)
	assert.Equal(t, 10*time.Minute, cfg.Monitor.PathCacheTTL)
	assert.Equal(t, "@every 5m", cfg.RateLimit.SweepSchedule)

	level, err := cfg.Logger.InitialLevel()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelDebug, level)

	profiles := cfg.RateLimit.Profiles()
	require.Len(t, profiles, 3)
	assert.Equal(t, ratelimit.Config{
		Name:        config.ProfileGeneral,
		Window:      15 * time.Minute,
		MaxRequests: 100,
		Message:     "Too many requests from this IP, please try again later.",
	}, profiles[0])
	assert.Equal(t, config.ProfileContact, profiles[1].Name)
	assert.Equal(t, 5, profiles[1].MaxRequests)
	assert.True(t, profiles[2].SkipFailedRequests)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	cfg, err := config.LoadFromEnvironment(map[string]string{
		"APP_ENV":                        "production",
		"LOG_MAX_ENTRIES":                "50",
		"RATE_LIMIT_CONTACT_MAX":         "2",
		"RATE_LIMIT_CONTACT_WINDOW":      "10m",
		"RATE_LIMIT_GENERAL_SKIP_FAILED": "true",
		"HEALTH_MAX_ERROR_RATE":          "2.5",
	})
	require.NoError(t, err)

	level, err := cfg.Logger.InitialLevel()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelInfo, level)
	assert.Equal(t, 50, cfg.Logger.MaxEntries)

	profiles := cfg.RateLimit.Profiles()
	assert.Equal(t, 2, profiles[1].MaxRequests)
	assert.Equal(t, 10*time.Minute, profiles[1].Window)
	assert.Equal(t, "Too many contact form submissions, please try again later.", profiles[1].Message)
	assert.True(t, profiles[0].SkipFailedRequests)
	assert.Equal(t, 100, profiles[0].MaxRequests)
	assert.InDelta(t, 2.5, cfg.Monitor.MaxErrorRate, 1e-9)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
	}{
		{"zero max", map[string]string{"RATE_LIMIT_BOOKING_MAX": "0"}},
		{"negative window", map[string]string{"RATE_LIMIT_GENERAL_WINDOW": "-1m"}},
		{"bad level", map[string]string{"LOG_LEVEL": "chatty"}},
		{"bad error rate", map[string]string{"HEALTH_MAX_ERROR_RATE": "150"}},
		{"no history", map[string]string{"LOG_MAX_ENTRIES": "0"}},
		{"unparseable duration", map[string]string{"HEALTH_MIN_UPTIME": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFromEnvironment(tt.environ)
			assert.Error(t, err)
		})
	}
}

func TestLoad_InvalidProfileWrapsSentinel(t *testing.T) {
	_, err := config.LoadFromEnvironment(map[string]string{"RATE_LIMIT_CONTACT_MAX": "-1"})
	assert.ErrorIs(t, err, ratelimit.ErrInvalidConfig)
}

func TestLoad_ProfilesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: contact
    window: 30m
    max_requests: 3
  - name: booking
    skip_failed_requests: false
    message: "Booking quota reached."
`), 0o600))

	cfg, err := config.LoadFromEnvironment(map[string]string{"RATE_LIMIT_PROFILES_FILE": path})
	require.NoError(t, err)

	profiles := cfg.RateLimit.Profiles()
	assert.Equal(t, 30*time.Minute, profiles[1].Window)
	assert.Equal(t, 3, profiles[1].MaxRequests)
	assert.False(t, profiles[2].SkipFailedRequests)
	assert.Equal(t, "Booking quota reached.", profiles[2].Message)
	assert.Equal(t, 3, profiles[2].MaxRequests)
}

func TestLoad_ProfilesFileErrors(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("profiles:\n  - name: search\n    max_requests: 1\n"), 0o600))
	_, err := config.LoadFromEnvironment(map[string]string{"RATE_LIMIT_PROFILES_FILE": unknown})
	assert.ErrorIs(t, err, config.ErrUnknownProfile)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("profiles:\n  - name: general\n    max_requests: 0\n"), 0o600))
	_, err = config.LoadFromEnvironment(map[string]string{"RATE_LIMIT_PROFILES_FILE": invalid})
	assert.ErrorIs(t, err, ratelimit.ErrInvalidConfig)

	_, err = config.LoadFromEnvironment(map[string]string{"RATE_LIMIT_PROFILES_FILE": filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestParseProfileOverrides_Malformed(t *testing.T) {
	_, err := config.ParseProfileOverrides([]byte("profiles: [name: {"))
	assert.Error(t, err)
}
