/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminapi

import (
	"fmt"
	"time"

	"github.com/statwatch/apisched/config"
)

const cfgDefaultKeyPrefix = "adminServer"

const (
	cfgKeyAddress          = "address"
	cfgKeyTimeoutsRead     = "timeouts.read"
	cfgKeyTimeoutsWrite    = "timeouts.write"
	cfgKeyTimeoutsShutdown = "timeouts.shutdown"
	cfgKeyLogRequests      = "log.requests"
	cfgKeyProfiling        = "profiling.enabled"
)

// Default values.
const (
	DefaultAddress         = "127.0.0.1:9090"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// TimeoutsConfig represents a set of timeouts of the admin HTTP server.
type TimeoutsConfig struct {
	Read     time.Duration `mapstructure:"read" yaml:"read" json:"read"`
	Write    time.Duration `mapstructure:"write" yaml:"write" json:"write"`
	Shutdown time.Duration `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

// LogConfig controls logging of served admin requests.
type LogConfig struct {
	Requests bool `mapstructure:"requests" yaml:"requests" json:"requests"`
}

// ProfilingConfig controls pprof endpoints served under /debug.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// Config represents a set of configuration parameters for the admin HTTP server.
type Config struct {
	Address   string          `mapstructure:"address" yaml:"address" json:"address"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts" yaml:"timeouts" json:"timeouts"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling" json:"profiling"`

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

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Address = DefaultAddress
	cfg.Timeouts = TimeoutsConfig{
		Read:     DefaultReadTimeout,
		Write:    DefaultWriteTimeout,
		Shutdown: DefaultShutdownTimeout,
	}
	cfg.Log.Requests = true
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the admin server in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAddress, DefaultAddress)
	dp.SetDefault(cfgKeyTimeoutsRead, DefaultReadTimeout)
	dp.SetDefault(cfgKeyTimeoutsWrite, DefaultWriteTimeout)
	dp.SetDefault(cfgKeyTimeoutsShutdown, DefaultShutdownTimeout)
	dp.SetDefault(cfgKeyLogRequests, true)
	dp.SetDefault(cfgKeyProfiling, false)
}

// Set sets admin server configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, fmt.Errorf("cannot be empty"))
	}
	for key, dst := range map[string]*time.Duration{
		cfgKeyTimeoutsRead:     &c.Timeouts.Read,
		cfgKeyTimeoutsWrite:    &c.Timeouts.Write,
		cfgKeyTimeoutsShutdown: &c.Timeouts.Shutdown,
	} {
		if *dst, err = dp.GetDuration(key); err != nil {
			return err
		}
		if *dst < 0 {
			return dp.WrapKeyErr(key, fmt.Errorf("should be >= 0"))
		}
	}
	if c.Log.Requests, err = dp.GetBool(cfgKeyLogRequests); err != nil {
		return err
	}
	if c.Profiling.Enabled, err = dp.GetBool(cfgKeyProfiling); err != nil {
		return err
	}
	return nil
}
