/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package scheduler

import (
	"fmt"
	"time"

	"github.com/statwatch/apisched/config"
)

const cfgDefaultKeyPrefix = "scheduler"

const (
	cfgKeyShortWindowLimit      = "shortWindow.limit"
	cfgKeyShortWindowDuration   = "shortWindow.duration"
	cfgKeyShortWindowFloor      = "shortWindow.floor"
	cfgKeyShortWindowShrinkStep = "shortWindow.shrinkStep"
	cfgKeyShortWindowGrowStep   = "shortWindow.growStep"
	cfgKeyLongWindowLimit       = "longWindow.limit"
	cfgKeyLongWindowDuration    = "longWindow.duration"
	cfgKeyLongWindowFloor       = "longWindow.floor"
	cfgKeyLongWindowShrinkStep  = "longWindow.shrinkStep"
	cfgKeyLongWindowGrowStep    = "longWindow.growStep"
	cfgKeyRetryMaxAttempts      = "retry.maxAttempts"
	cfgKeyRetryBaseDelay        = "retry.baseDelay"
	cfgKeyRetryMaxDelay         = "retry.maxDelay"
	cfgKeyRetryErrorThreshold   = "retry.errorThreshold"
	cfgKeyCacheTTL              = "cache.ttl"
	cfgKeyCacheMaxEntries       = "cache.maxEntries"
	cfgKeyCacheCleanupInterval  = "cache.cleanupInterval"
	cfgKeyDefaultTimeout        = "defaultTimeout"
)

// Default configuration values.
const (
	DefaultShortWindowLimit      = 18
	DefaultShortWindowDuration   = time.Second
	DefaultShortWindowFloor      = 10
	DefaultShortWindowShrinkStep = 2
	DefaultShortWindowGrowStep   = 1

	DefaultLongWindowLimit      = 95
	DefaultLongWindowDuration   = 120 * time.Second
	DefaultLongWindowFloor      = 50
	DefaultLongWindowShrinkStep = 10
	DefaultLongWindowGrowStep   = 5

	DefaultRetryMaxAttempts    = 3
	DefaultRetryBaseDelay      = time.Second
	DefaultRetryMaxDelay       = 30 * time.Second
	DefaultRetryErrorThreshold = 2

	DefaultCacheTTL             = 5 * time.Minute
	DefaultCacheMaxEntries      = 10000
	DefaultCacheCleanupInterval = time.Minute

	DefaultTimeout = 10 * time.Second
)

// WindowConfig represents configuration of a single admission window.
type WindowConfig struct {
	// Limit is the nominal number of admissions allowed within Duration.
	Limit int `mapstructure:"limit" yaml:"limit" json:"limit"`
	// Duration is the length of the sliding window.
	Duration time.Duration `mapstructure:"duration" yaml:"duration" json:"duration"`
	// Floor is the lowest effective capacity the window can be shrunk to.
	Floor int `mapstructure:"floor" yaml:"floor" json:"floor"`
	// ShrinkStep is subtracted from the effective capacity on sustained throttling.
	ShrinkStep int `mapstructure:"shrinkStep" yaml:"shrinkStep" json:"shrinkStep"`
	// GrowStep is added to the effective capacity on every success.
	GrowStep int `mapstructure:"growStep" yaml:"growStep" json:"growStep"`
}

// RetryConfig represents configuration for retrying throttled requests.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	BaseDelay      time.Duration `mapstructure:"baseDelay" yaml:"baseDelay" json:"baseDelay"`
	MaxDelay       time.Duration `mapstructure:"maxDelay" yaml:"maxDelay" json:"maxDelay"`
	// ErrorThreshold is how many consecutive throttling failures are tolerated before capacities shrink.
	// 0 shrinks them on the first one.
	ErrorThreshold int           `mapstructure:"errorThreshold" yaml:"errorThreshold" json:"errorThreshold"`
}

// CacheConfig represents configuration for the result cache.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
	MaxEntries int           `mapstructure:"maxEntries" yaml:"maxEntries" json:"maxEntries"`

	// CleanupInterval is how often expired entries are removed while the scheduler is running.
	CleanupInterval time.Duration `mapstructure:"cleanupInterval" yaml:"cleanupInterval" json:"cleanupInterval"`
}

// Config represents a set of configuration parameters for the request scheduler.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	ShortWindow WindowConfig `mapstructure:"shortWindow" yaml:"shortWindow" json:"shortWindow"`
	LongWindow  WindowConfig `mapstructure:"longWindow" yaml:"longWindow" json:"longWindow"`
	Retry       RetryConfig  `mapstructure:"retry" yaml:"retry" json:"retry"`
	Cache       CacheConfig  `mapstructure:"cache" yaml:"cache" json:"cache"`

	// DefaultTimeout is used for requests submitted without an explicit timeout.
	DefaultTimeout time.Duration `mapstructure:"defaultTimeout" yaml:"defaultTimeout" json:"defaultTimeout"`

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
// This prefix will be used by config.Loader.
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
	cfg.ShortWindow = WindowConfig{
		Limit:      DefaultShortWindowLimit,
		Duration:   DefaultShortWindowDuration,
		Floor:      DefaultShortWindowFloor,
		ShrinkStep: DefaultShortWindowShrinkStep,
		GrowStep:   DefaultShortWindowGrowStep,
	}
	cfg.LongWindow = WindowConfig{
		Limit:      DefaultLongWindowLimit,
		Duration:   DefaultLongWindowDuration,
		Floor:      DefaultLongWindowFloor,
		ShrinkStep: DefaultLongWindowShrinkStep,
		GrowStep:   DefaultLongWindowGrowStep,
	}
	cfg.Retry = RetryConfig{
		MaxAttempts:    DefaultRetryMaxAttempts,
		BaseDelay:      DefaultRetryBaseDelay,
		MaxDelay:       DefaultRetryMaxDelay,
		ErrorThreshold: DefaultRetryErrorThreshold,
	}
	cfg.Cache = CacheConfig{
		TTL: DefaultCacheTTL, MaxEntries: DefaultCacheMaxEntries, CleanupInterval: DefaultCacheCleanupInterval}
	cfg.DefaultTimeout = DefaultTimeout
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

// SetProviderDefaults sets default configuration values for the scheduler in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyShortWindowLimit, DefaultShortWindowLimit)
	dp.SetDefault(cfgKeyShortWindowDuration, DefaultShortWindowDuration)
	dp.SetDefault(cfgKeyShortWindowFloor, DefaultShortWindowFloor)
	dp.SetDefault(cfgKeyShortWindowShrinkStep, DefaultShortWindowShrinkStep)
	dp.SetDefault(cfgKeyShortWindowGrowStep, DefaultShortWindowGrowStep)
	dp.SetDefault(cfgKeyLongWindowLimit, DefaultLongWindowLimit)
	dp.SetDefault(cfgKeyLongWindowDuration, DefaultLongWindowDuration)
	dp.SetDefault(cfgKeyLongWindowFloor, DefaultLongWindowFloor)
	dp.SetDefault(cfgKeyLongWindowShrinkStep, DefaultLongWindowShrinkStep)
	dp.SetDefault(cfgKeyLongWindowGrowStep, DefaultLongWindowGrowStep)
	dp.SetDefault(cfgKeyRetryMaxAttempts, DefaultRetryMaxAttempts)
	dp.SetDefault(cfgKeyRetryBaseDelay, DefaultRetryBaseDelay)
	dp.SetDefault(cfgKeyRetryMaxDelay, DefaultRetryMaxDelay)
	dp.SetDefault(cfgKeyRetryErrorThreshold, DefaultRetryErrorThreshold)
	dp.SetDefault(cfgKeyCacheTTL, DefaultCacheTTL)
	dp.SetDefault(cfgKeyCacheMaxEntries, DefaultCacheMaxEntries)
	dp.SetDefault(cfgKeyCacheCleanupInterval, DefaultCacheCleanupInterval)
	dp.SetDefault(cfgKeyDefaultTimeout, DefaultTimeout)
}

// Set sets scheduler configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.ShortWindow, err = getWindowConfig(dp, cfgKeyShortWindowLimit, cfgKeyShortWindowDuration,
		cfgKeyShortWindowFloor, cfgKeyShortWindowShrinkStep, cfgKeyShortWindowGrowStep); err != nil {
		return err
	}
	if c.LongWindow, err = getWindowConfig(dp, cfgKeyLongWindowLimit, cfgKeyLongWindowDuration,
		cfgKeyLongWindowFloor, cfgKeyLongWindowShrinkStep, cfgKeyLongWindowGrowStep); err != nil {
		return err
	}

	if c.Retry.MaxAttempts, err = dp.GetInt(cfgKeyRetryMaxAttempts); err != nil {
		return err
	}
	if c.Retry.BaseDelay, err = dp.GetDuration(cfgKeyRetryBaseDelay); err != nil {
		return err
	}
	if c.Retry.MaxDelay, err = dp.GetDuration(cfgKeyRetryMaxDelay); err != nil {
		return err
	}
	if c.Retry.ErrorThreshold, err = dp.GetInt(cfgKeyRetryErrorThreshold); err != nil {
		return err
	}

	if c.Cache.TTL, err = dp.GetDuration(cfgKeyCacheTTL); err != nil {
		return err
	}
	if c.Cache.MaxEntries, err = dp.GetInt(cfgKeyCacheMaxEntries); err != nil {
		return err
	}
	if c.Cache.CleanupInterval, err = dp.GetDuration(cfgKeyCacheCleanupInterval); err != nil {
		return err
	}

	if c.DefaultTimeout, err = dp.GetDuration(cfgKeyDefaultTimeout); err != nil {
		return err
	}

	if key, vErr := c.validate(); vErr != nil {
		return dp.WrapKeyErr(key, vErr)
	}
	return nil
}

// Validate checks that configuration values are consistent.
func (c *Config) Validate() error {
	if key, err := c.validate(); err != nil {
		return config.WrapKeyErr(key, err)
	}
	return nil
}

func getWindowConfig(
	dp config.DataProvider, limitKey, durationKey, floorKey, shrinkStepKey, growStepKey string,
) (cfg WindowConfig, err error) {
	if cfg.Limit, err = dp.GetInt(limitKey); err != nil {
		return cfg, err
	}
	if cfg.Duration, err = dp.GetDuration(durationKey); err != nil {
		return cfg, err
	}
	if cfg.Floor, err = dp.GetInt(floorKey); err != nil {
		return cfg, err
	}
	if cfg.ShrinkStep, err = dp.GetInt(shrinkStepKey); err != nil {
		return cfg, err
	}
	if cfg.GrowStep, err = dp.GetInt(growStepKey); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// validate returns the key of the first invalid parameter along with the error.
func (c *Config) validate() (string, error) {
	if key, err := validateWindow(c.ShortWindow, cfgKeyShortWindowLimit, cfgKeyShortWindowDuration,
		cfgKeyShortWindowFloor, cfgKeyShortWindowShrinkStep, cfgKeyShortWindowGrowStep); err != nil {
		return key, err
	}
	if key, err := validateWindow(c.LongWindow, cfgKeyLongWindowLimit, cfgKeyLongWindowDuration,
		cfgKeyLongWindowFloor, cfgKeyLongWindowShrinkStep, cfgKeyLongWindowGrowStep); err != nil {
		return key, err
	}
	if c.Retry.MaxAttempts < 0 {
		return cfgKeyRetryMaxAttempts, fmt.Errorf("should be >= 0")
	}
	if c.Retry.BaseDelay <= 0 {
		return cfgKeyRetryBaseDelay, fmt.Errorf("should be positive")
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return cfgKeyRetryMaxDelay, fmt.Errorf("should be >= %s (%s)", cfgKeyRetryBaseDelay, c.Retry.BaseDelay)
	}
	if c.Retry.ErrorThreshold < 0 {
		return cfgKeyRetryErrorThreshold, fmt.Errorf("should be >= 0")
	}
	if c.Cache.TTL <= 0 {
		return cfgKeyCacheTTL, fmt.Errorf("should be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return cfgKeyCacheMaxEntries, fmt.Errorf("should be positive")
	}
	if c.Cache.CleanupInterval <= 0 {
		return cfgKeyCacheCleanupInterval, fmt.Errorf("should be positive")
	}
	if c.DefaultTimeout <= 0 {
		return cfgKeyDefaultTimeout, fmt.Errorf("should be positive")
	}
	return "", nil
}

func validateWindow(
	w WindowConfig, limitKey, durationKey, floorKey, shrinkStepKey, growStepKey string,
) (string, error) {
	if w.Limit <= 0 {
		return limitKey, fmt.Errorf("should be positive")
	}
	if w.Duration <= 0 {
		return durationKey, fmt.Errorf("should be positive")
	}
	if w.Floor <= 0 || w.Floor > w.Limit {
		return floorKey, fmt.Errorf("should be in range [1, %d]", w.Limit)
	}
	if w.ShrinkStep < 0 {
		return shrinkStepKey, fmt.Errorf("should be >= 0")
	}
	if w.GrowStep < 0 {
		return growStepKey, fmt.Errorf("should be >= 0")
	}
	return "", nil
}
