package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"opscore/internal/logging"
	"opscore/internal/ratelimit"
)

const (
	ProfileGeneral = "general"
	ProfileContact = "contact"
	ProfileBooking = "booking"
)

type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Monitor   MonitorConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Host           string `env:"SERVER_HOST" envDefault:"localhost"`
	Port           int    `env:"SERVER_PORT" envDefault:"8080"`
	MaxConnections int    `env:"SERVER_MAX_CONNECTIONS" envDefault:"0"`
	BodyLimit      string `env:"SERVER_BODY_LIMIT" envDefault:"64K"`
}

type LoggerConfig struct {
	Env        string `env:"APP_ENV" envDefault:"development"`
	Level      string `env:"LOG_LEVEL"`
	MaxEntries int    `env:"LOG_MAX_ENTRIES" envDefault:"1000"`
}

// InitialLevel resolves LOG_LEVEL, falling back to the environment default.
func (c LoggerConfig) InitialLevel() (logging.Level, error) {
	if c.Level == "" {
		return logging.DefaultLevel(c.Env), nil
	}
	return logging.ParseLevel(c.Level)
}

type MonitorConfig struct {
	SlowRequest        time.Duration `env:"MONITOR_SLOW_REQUEST" envDefault:"2s"`
	MaxAvgResponseTime time.Duration `env:"HEALTH_MAX_AVG_RESPONSE" envDefault:"1s"`
	MaxErrorRate       float64       `env:"HEALTH_MAX_ERROR_RATE" envDefault:"5"`
	MinUptime          time.Duration `env:"HEALTH_MIN_UPTIME" envDefault:"60s"`
	PathCachePow2      int           `env:"MONITOR_PATH_CACHE_POW2" envDefault:"20"`
	PathCacheMaxPath   int           `env:"MONITOR_PATH_CACHE_MAX_PATH" envDefault:"512"`
	PathCacheTTL       time.Duration `env:"MONITOR_PATH_CACHE_TTL" envDefault:"10m"`
	Namespace          string        `env:"METRICS_NAMESPACE" envDefault:"opscore"`
	StatsSchedule      string        `env:"MONITOR_STATS_SCHEDULE" envDefault:"@every 1m"`
}

type ProfileConfig struct {
	Window         time.Duration `env:"WINDOW"`
	MaxRequests    int           `env:"MAX"`
	Message        string        `env:"MESSAGE"`
	SkipSuccessful bool          `env:"SKIP_SUCCESSFUL"`
	SkipFailed     bool          `env:"SKIP_FAILED"`
}

type RateLimitConfig struct {
	General ProfileConfig `envPrefix:"RATE_LIMIT_GENERAL_"`
	Contact ProfileConfig `envPrefix:"RATE_LIMIT_CONTACT_"`
	Booking ProfileConfig `envPrefix:"RATE_LIMIT_BOOKING_"`

	BypassSecret  string `env:"RATE_LIMIT_BYPASS_SECRET"`
	ProfilesFile  string `env:"RATE_LIMIT_PROFILES_FILE"`
	SweepSchedule string `env:"RATE_LIMIT_SWEEP_SCHEDULE" envDefault:"@every 5m"`
}

type AdminConfig struct {
	Secret        string  `env:"ADMIN_SECRET"`
	RPS           float64 `env:"ADMIN_RATE_LIMIT_RPS" envDefault:"5"`
	Burst         int     `env:"ADMIN_RATE_LIMIT_BURST" envDefault:"10"`
	ExpireMinutes int     `env:"ADMIN_RATE_LIMIT_EXPIRE_MINUTES" envDefault:"3"`
	PprofEnabled  bool    `env:"PPROF_ENABLED" envDefault:"false"`
}

func defaults() Config {
	return Config{
		RateLimit: RateLimitConfig{
			General: ProfileConfig{
				Window:      15 * time.Minute,
				MaxRequests: 100,
				Message:     "Too many requests from this IP, please try again later.",
			},
			Contact: ProfileConfig{
				Window:      time.Hour,
				MaxRequests: 5,
				Message:     "Too many contact form submissions, please try again later.",
			},
			Booking: ProfileConfig{
				Window:      time.Hour,
				MaxRequests: 3,
				Message:     "Too many booking requests, please try again later.",
				SkipFailed:  true,
			},
		},
	}
}

func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFromEnvironment reads configuration from the given variables instead
// of the process environment.
func LoadFromEnvironment(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	cfg := defaults()
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, err
	}

	if cfg.RateLimit.ProfilesFile != "" {
		overrides, err := LoadProfileOverrides(cfg.RateLimit.ProfilesFile)
		if err != nil {
			return nil, err
		}
		if err := cfg.RateLimit.apply(overrides); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	for _, p := range c.RateLimit.Profiles() {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := c.Logger.InitialLevel(); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.Logger.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("LOG_MAX_ENTRIES must be positive, got %d", c.Logger.MaxEntries))
	}
	if c.Monitor.MaxErrorRate < 0 || c.Monitor.MaxErrorRate > 100 {
		errs = append(errs, fmt.Errorf("HEALTH_MAX_ERROR_RATE must be within [0, 100], got %g", c.Monitor.MaxErrorRate))
	}
	return errors.Join(errs...)
}

// Profiles returns the limiter profiles in mounting order.
func (c RateLimitConfig) Profiles() []ratelimit.Config {
	return []ratelimit.Config{
		c.General.limiterConfig(ProfileGeneral),
		c.Contact.limiterConfig(ProfileContact),
		c.Booking.limiterConfig(ProfileBooking),
	}
}

func (p ProfileConfig) limiterConfig(name string) ratelimit.Config {
	return ratelimit.Config{
		Name:                   name,
		Window:                 p.Window,
		MaxRequests:            p.MaxRequests,
		Message:                p.Message,
		SkipSuccessfulRequests: p.SkipSuccessful,
		SkipFailedRequests:     p.SkipFailed,
	}
}

func (c *RateLimitConfig) profile(name string) (*ProfileConfig, bool) {
	switch name {
	case ProfileGeneral:
		return &c.General, true
	case ProfileContact:
		return &c.Contact, true
	case ProfileBooking:
		return &c.Booking, true
	default:
		return nil, false
	}
}
