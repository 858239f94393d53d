/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package poller

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/robfig/cron/v3"

	"github.com/statwatch/apisched/config"
	"github.com/statwatch/apisched/scheduler"
)

const cfgDefaultKeyPrefix = "poller"

const (
	cfgKeyTimezone = "timezone"
	cfgKeyTargets  = "targets"
)

// TargetConfig describes a single endpoint of the provider that is polled on a schedule.
type TargetConfig struct {
	// Name identifies the target in logs and in the request type label of HTTP client metrics.
	Name string `mapstructure:"name" yaml:"name" json:"name"`
	URL  string `mapstructure:"url" yaml:"url" json:"url"`

	// Schedule is a cron expression (seconds field is optional) or a descriptor like "@every 30s".
	Schedule string `mapstructure:"schedule" yaml:"schedule" json:"schedule"`

	// Priority is the dispatch tier (1..4). Zero means the lowest tier.
	Priority int `mapstructure:"priority" yaml:"priority" json:"priority"`

	// CacheKey enables caching of the polled result in the scheduler.
	CacheKey string `mapstructure:"cacheKey" yaml:"cacheKey" json:"cacheKey"`

	// Timeout limits a single request. Zero means the scheduler default timeout.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
}

// Config represents a set of configuration parameters for the poller.
type Config struct {
	// Timezone is an IANA time zone name used to interpret schedules. Empty means the local time zone.
	Timezone string         `mapstructure:"timezone" yaml:"timezone" json:"timezone"`
	Targets  []TargetConfig `mapstructure:"targets" yaml:"targets" json:"targets"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the poller in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(_ config.DataProvider) {}

// Set sets poller configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Timezone, err = dp.GetString(cfgKeyTimezone); err != nil {
		return err
	}
	if _, err = loadLocation(c.Timezone); err != nil {
		return dp.WrapKeyErr(cfgKeyTimezone, err)
	}

	c.Targets = nil
	if err = dp.UnmarshalKey(cfgKeyTargets, &c.Targets, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		)
		dc.ErrorUnused = true
	}); err != nil {
		return err
	}

	names := make(map[string]struct{}, len(c.Targets))
	for i := range c.Targets {
		if err = validateTarget(&c.Targets[i], names); err != nil {
			return dp.WrapKeyErr(fmt.Sprintf("%s[%d]", cfgKeyTargets, i), err)
		}
	}
	return nil
}

func validateTarget(t *TargetConfig, names map[string]struct{}) error {
	if t.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if _, ok := names[t.Name]; ok {
		return fmt.Errorf("duplicate name %q", t.Name)
	}
	names[t.Name] = struct{}{}
	if t.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}
	if _, err := scheduleParser.Parse(t.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", t.Schedule, err)
	}
	if t.Priority != 0 && !scheduler.Priority(t.Priority).Valid() {
		return fmt.Errorf("priority should be in range [1, 4]")
	}
	if t.Timeout < 0 {
		return fmt.Errorf("timeout should be >= 0")
	}
	return nil
}

// scheduleParser accepts both 5-field and 6-field (with seconds) cron specs and descriptors.
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
