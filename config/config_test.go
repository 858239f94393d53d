/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testWindowsConfigYAML = `
shortWindow:
  limit: 15
  duration: 2s
longWindow:
  limit: 80
`

type testWindowConfig struct {
	Limit    int
	Duration time.Duration

	keyPrefix string
	defaults  testWindowDefaults
}

type testWindowDefaults struct {
	limit    int
	duration time.Duration
}

func (c *testWindowConfig) KeyPrefix() string {
	return c.keyPrefix
}

func (c *testWindowConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("limit", c.defaults.limit)
	dp.SetDefault("duration", c.defaults.duration)
}

func (c *testWindowConfig) Set(dp DataProvider) (err error) {
	if c.Limit, err = dp.GetInt("limit"); err != nil {
		return err
	}
	if c.Limit <= 0 {
		return dp.WrapKeyErr("limit", errors.New("should be positive"))
	}
	if c.Duration, err = dp.GetDuration("duration"); err != nil {
		return err
	}
	return nil
}

type testWindowsConfig struct {
	Short *testWindowConfig
	Long  *testWindowConfig
	Extra *testWindowConfig

	Name  string
	other *testWindowConfig
}

func newTestWindowsConfig() *testWindowsConfig {
	return &testWindowsConfig{
		Short: &testWindowConfig{keyPrefix: "shortWindow", defaults: testWindowDefaults{18, time.Second}},
		Long:  &testWindowConfig{keyPrefix: "longWindow", defaults: testWindowDefaults{95, 2 * time.Minute}},
		other: &testWindowConfig{keyPrefix: "otherWindow", defaults: testWindowDefaults{1, time.Second}},
	}
}

func (c *testWindowsConfig) SetProviderDefaults(dp DataProvider) {
	CallSetProviderDefaultsForFields(c, dp)
}

func (c *testWindowsConfig) Set(dp DataProvider) error {
	return CallSetForFields(c, dp)
}

func TestCallHelpers(t *testing.T) {
	t.Run("fields are loaded with their key prefixes", func(t *testing.T) {
		cfg := newTestWindowsConfig()
		err := NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(testWindowsConfigYAML), DataTypeYAML, cfg)
		require.NoError(t, err)

		require.Equal(t, 15, cfg.Short.Limit)
		require.Equal(t, 2*time.Second, cfg.Short.Duration)
		require.Equal(t, 80, cfg.Long.Limit)
		require.Equal(t, 2*time.Minute, cfg.Long.Duration)
		require.Nil(t, cfg.Extra)
		require.Zero(t, cfg.other.Limit, "unexported fields should be skipped")
	})

	t.Run("the first error is returned", func(t *testing.T) {
		cfg := newTestWindowsConfig()
		err := NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString(`{"longWindow": {"limit": -1}, "shortWindow": {"limit": "many"}}`), DataTypeJSON, cfg)
		require.ErrorContains(t, err, "shortWindow.limit: ")
	})

	t.Run("validation error is wrapped with the prefixed key", func(t *testing.T) {
		cfg := newTestWindowsConfig()
		err := NewDefaultLoader("").LoadFromReader(
			bytes.NewBufferString(`{"longWindow": {"limit": -1}}`), DataTypeJSON, cfg)
		require.EqualError(t, err, "longWindow.limit: should be positive")
	})
}

func TestWrapKeyErrIfNeeded(t *testing.T) {
	require.NoError(t, WrapKeyErrIfNeeded("scheduler.cache.ttl", nil))

	errInvalid := errors.New("should be positive")
	err := WrapKeyErrIfNeeded("scheduler.cache.ttl", errInvalid)
	require.EqualError(t, err, "scheduler.cache.ttl: should be positive")
	require.ErrorIs(t, err, errInvalid)
}
