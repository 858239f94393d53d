/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/require"
)

const testPollerConfigYAML = `
poller:
  timezone: Europe/Berlin
  enabled: true
  targets:
    - name: platform-status
      url: http://localhost/status
      timeout: 5s
      priority: 3
    - name: featured-games
      url: http://localhost/featured
`

const testPollerConfigJSON = `{"poller": {"timezone": "Europe/Berlin", "enabled": true,
  "targets": [{"name": "platform-status", "url": "http://localhost/status", "timeout": "5s", "priority": 3},
  {"name": "featured-games", "url": "http://localhost/featured"}]}}`

func TestViperAdapter_SetFromReader(t *testing.T) {
	tests := []struct {
		dataType DataType
		data     string
	}{
		{DataTypeYAML, testPollerConfigYAML},
		{DataTypeJSON, testPollerConfigJSON},
	}
	for _, tt := range tests {
		t.Run(string(tt.dataType), func(t *testing.T) {
			va := NewViperAdapter()
			require.NoError(t, va.SetFromReader(bytes.NewBufferString(tt.data), tt.dataType))

			tz, err := va.GetString("poller.timezone")
			require.NoError(t, err)
			require.Equal(t, "Europe/Berlin", tz)

			enabled, err := va.GetBool("poller.enabled")
			require.NoError(t, err)
			require.True(t, enabled)

			require.True(t, va.IsSet("poller.targets"))
			require.False(t, va.IsSet("poller.schedule"))
		})
	}
}

func TestViperAdapter_SetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apisched.json")
	require.NoError(t, os.WriteFile(path, []byte(testPollerConfigJSON), 0o600))

	va := NewViperAdapter()
	require.NoError(t, va.SetFromFile(path, DataTypeJSON))
	tz, err := va.GetString("poller.timezone")
	require.NoError(t, err)
	require.Equal(t, "Europe/Berlin", tz)
}

func TestViperAdapter_UseEnvVars(t *testing.T) {
	t.Setenv("APISCHEDTEST_POLLER_TIMEZONE", "UTC")

	va := NewViperAdapter()
	va.UseEnvVars("apischedtest")
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(testPollerConfigYAML), DataTypeYAML))

	tz, err := va.GetString("poller.timezone")
	require.NoError(t, err)
	require.Equal(t, "UTC", tz)
}

func TestViperAdapter_SetOverridesDefault(t *testing.T) {
	va := NewViperAdapter()
	va.SetDefault("scheduler.shortWindow.limit", 18)
	limit, err := va.GetInt("scheduler.shortWindow.limit")
	require.NoError(t, err)
	require.Equal(t, 18, limit)

	va.Set("scheduler.shortWindow.limit", 12)
	limit, err = va.GetInt("scheduler.shortWindow.limit")
	require.NoError(t, err)
	require.Equal(t, 12, limit)
	require.Equal(t, 12, va.Get("scheduler.shortWindow.limit"))
}

func TestViperAdapter_GetInt(t *testing.T) {
	va := NewViperAdapter()
	va.Set("limit", "many")
	_, err := va.GetInt("limit")
	require.ErrorContains(t, err, "limit: ")

	va.Set("limit", "95")
	limit, err := va.GetInt("limit")
	require.NoError(t, err)
	require.Equal(t, 95, limit)
}

func TestViperAdapter_GetStringFromSet(t *testing.T) {
	va := NewViperAdapter()
	modes := []string{"none", "all", "failed"}

	t.Run("value not from set", func(t *testing.T) {
		va.Set("mode", "some")
		_, err := va.GetStringFromSet("mode", modes, false)
		require.EqualError(t, err, `mode: unknown value "some", should be one of [none all failed]`)
	})

	t.Run("case sensitivity", func(t *testing.T) {
		va.Set("mode", "ALL")
		_, err := va.GetStringFromSet("mode", modes, false)
		require.Error(t, err)

		mode, err := va.GetStringFromSet("mode", modes, true)
		require.NoError(t, err)
		require.Equal(t, "ALL", mode)
	})

	t.Run("invalid value type", func(t *testing.T) {
		va.Set("mode", []string{"all"})
		_, err := va.GetStringFromSet("mode", modes, false)
		require.Error(t, err)
	})
}

func TestViperAdapter_GetDuration(t *testing.T) {
	va := NewViperAdapter()
	tests := []struct {
		val     interface{}
		want    time.Duration
		wantErr bool
	}{
		{val: nil, want: 0},
		{val: "120s", want: 2 * time.Minute},
		{val: "1m30s", want: 90 * time.Second},
		{val: 1000, want: time.Microsecond},
		{val: "soon", wantErr: true},
		{val: []int{1}, wantErr: true},
	}
	for _, tt := range tests {
		va.Set("retry.baseDelay", tt.val)
		got, err := va.GetDuration("retry.baseDelay")
		if tt.wantErr {
			require.ErrorContains(t, err, "retry.baseDelay: ", "value: %v", tt.val)
			continue
		}
		require.NoError(t, err, "value: %v", tt.val)
		require.Equal(t, tt.want, got, "value: %v", tt.val)
	}
}

func TestViperAdapter_GetBytesCount(t *testing.T) {
	va := NewViperAdapter()
	tests := []struct {
		val     interface{}
		want    BytesCount
		wantErr bool
	}{
		{val: nil, want: 0},
		{val: "100M", want: 100 * 1024 * 1024},
		{val: "512Ki", want: 512 * 1024},
		{val: 4096, want: 4096},
		{val: uint32(10), want: 10},
		{val: 2048.0, want: 2048},
		{val: BytesCount(42), want: 42},
		{val: -1, wantErr: true},
		{val: "lots", wantErr: true},
		{val: true, wantErr: true},
	}
	for _, tt := range tests {
		va.Set("log.file.rotation.maxSize", tt.val)
		got, err := va.GetBytesCount("log.file.rotation.maxSize")
		if tt.wantErr {
			require.ErrorContains(t, err, "log.file.rotation.maxSize: ", "value: %v", tt.val)
			continue
		}
		require.NoError(t, err, "value: %v", tt.val)
		require.Equal(t, tt.want, got, "value: %v", tt.val)
	}
}

func TestViperAdapter_UnmarshalKey(t *testing.T) {
	type target struct {
		Name     string        `mapstructure:"name"`
		URL      string        `mapstructure:"url"`
		Timeout  time.Duration `mapstructure:"timeout"`
		Priority int           `mapstructure:"priority"`
	}

	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(testPollerConfigYAML), DataTypeYAML))

	var targets []target
	err := va.UnmarshalKey("poller.targets", &targets, func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	})
	require.NoError(t, err)
	require.Equal(t, []target{
		{Name: "platform-status", URL: "http://localhost/status", Timeout: 5 * time.Second, Priority: 3},
		{Name: "featured-games", URL: "http://localhost/featured"},
	}, targets)

	var strict []struct {
		Name string `mapstructure:"name"`
	}
	err = va.UnmarshalKey("poller.targets", &strict, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	})
	require.ErrorContains(t, err, "poller.targets: ")
}
