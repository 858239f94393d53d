/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testTargetConfig struct {
	URL     string
	Timeout time.Duration
}

func (c *testTargetConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("target.timeout", 10*time.Second)
}

func (c *testTargetConfig) Set(dp DataProvider) (err error) {
	if c.URL, err = dp.GetString("target.url"); err != nil {
		return err
	}
	c.Timeout, err = dp.GetDuration("target.timeout")
	return err
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults are used", func(t *testing.T) {
		targetCfg := &testTargetConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, targetCfg)
		require.NoError(t, err)
		require.Equal(t, "", targetCfg.URL)
		require.Equal(t, 10*time.Second, targetCfg.Timeout)
	})

	t.Run("several configs at once", func(t *testing.T) {
		targetCfg := &testTargetConfig{}
		windowCfg := &testWindowConfig{keyPrefix: "shortWindow", defaults: testWindowDefaults{18, time.Second}}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`
target:
  url: http://localhost/status
  timeout: 3s
shortWindow:
  limit: 5
`), DataTypeYAML, targetCfg, windowCfg)
		require.NoError(t, err)
		require.Equal(t, "http://localhost/status", targetCfg.URL)
		require.Equal(t, 3*time.Second, targetCfg.Timeout)
		require.Equal(t, 5, windowCfg.Limit)
		require.Equal(t, time.Second, windowCfg.Duration)
	})

	t.Run("malformed data", func(t *testing.T) {
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{"target":`), DataTypeJSON, &testTargetConfig{})
		require.Error(t, err)
	})
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apisched.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target:\n  url: http://localhost/matches\n"), 0o600))

	targetCfg := &testTargetConfig{}
	require.NoError(t, NewDefaultLoader("").LoadFromFile(path, DataTypeYAML, targetCfg))
	require.Equal(t, "http://localhost/matches", targetCfg.URL)

	absent := filepath.Join(t.TempDir(), "absent.yaml")
	err := NewDefaultLoader("").LoadFromFile(absent, DataTypeYAML, &testTargetConfig{})
	require.ErrorContains(t, err, fmt.Sprintf("read config file %q", absent))
}

func TestLoader_EnvVars(t *testing.T) {
	t.Setenv("APISCHEDTEST_SHORTWINDOW_LIMIT", "7")
	t.Setenv("APISCHEDTEST_TARGET_TIMEOUT", "1m")

	targetCfg := &testTargetConfig{}
	windowCfg := &testWindowConfig{keyPrefix: "shortWindow", defaults: testWindowDefaults{18, time.Second}}
	err := NewDefaultLoader("apischedtest").LoadFromReader(
		bytes.NewBufferString("shortWindow:\n  limit: 15\n"), DataTypeYAML, targetCfg, windowCfg)
	require.NoError(t, err)
	require.Equal(t, 7, windowCfg.Limit)
	require.Equal(t, time.Minute, targetCfg.Timeout)
}

func TestDataTypeFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    DataType
		wantErr string
	}{
		{path: "/etc/apisched/apisched.yaml", want: DataTypeYAML},
		{path: "apisched.YML", want: DataTypeYAML},
		{path: "apisched.json", want: DataTypeJSON},
		{path: "apisched.toml", wantErr: `unsupported config file extension ".toml", should be one of [.yaml .yml .json]`},
		{path: "apisched", wantErr: `unsupported config file extension "", should be one of [.yaml .yml .json]`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DataTypeFromPath(tt.path)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_LoadFromFileDetectsDataType(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "apisched.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"target": {"url": "http://localhost/ranked"}}`), 0o600))

	targetCfg := &testTargetConfig{}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(jsonPath, "", targetCfg))
	require.Equal(t, "http://localhost/ranked", targetCfg.URL)

	err := NewLoader(NewViperAdapter()).LoadFromFile(filepath.Join(dir, "apisched.ini"), "", &testTargetConfig{})
	require.ErrorContains(t, err, "unsupported config file extension")

	err = NewLoader(NewViperAdapter()).LoadFromFile(jsonPath, DataTypeJSON)
	require.EqualError(t, err, "no configuration objects to load")
}
