package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrUnknownProfile = errors.New("unknown rate limit profile")

// ProfileOverride replaces only the fields present in the file.
type ProfileOverride struct {
	Name                   string         `yaml:"name"`
	Window                 *time.Duration `yaml:"window"`
	MaxRequests            *int           `yaml:"max_requests"`
	Message                *string        `yaml:"message"`
	SkipSuccessfulRequests *bool          `yaml:"skip_successful_requests"`
	SkipFailedRequests     *bool          `yaml:"skip_failed_requests"`
}

type profilesDocument struct {
	Profiles []ProfileOverride `yaml:"profiles"`
}

// LoadProfileOverrides reads a YAML document of the form:
//
//	profiles:
//	  - name: contact
//	    window: 30m
//	    max_requests: 3
func LoadProfileOverrides(path string) ([]ProfileOverride, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate limit profiles: %w", err)
	}
	return ParseProfileOverrides(raw)
}

func ParseProfileOverrides(raw []byte) ([]ProfileOverride, error) {
	var doc profilesDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse rate limit profiles: %w", err)
	}
	return doc.Profiles, nil
}

func (c *RateLimitConfig) apply(overrides []ProfileOverride) error {
	for _, o := range overrides {
		p, ok := c.profile(o.Name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownProfile, o.Name)
		}
		if o.Window != nil {
			p.Window = *o.Window
		}
		if o.MaxRequests != nil {
			p.MaxRequests = *o.MaxRequests
		}
		if o.Message != nil {
			p.Message = *o.Message
		}
		if o.SkipSuccessfulRequests != nil {
			p.SkipSuccessful = *o.SkipSuccessfulRequests
		}
		if o.SkipFailedRequests != nil {
			p.SkipFailed = *o.SkipFailedRequests
		}
	}
	return nil
}
