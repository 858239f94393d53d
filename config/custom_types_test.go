/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"testing"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestBytesCount_Unmarshal(t *testing.T) {
	tests := []struct {
		name      string
		jsonInput string
		yamlInput string
		want      BytesCount
		wantErr   bool
	}{
		{name: "integer", jsonInput: `1024`, yamlInput: `1024`, want: 1024},
		{name: "human-readable", jsonInput: `"10MB"`, yamlInput: `10MB`, want: 10 * 1024 * 1024},
		{name: "k8s suffix", jsonInput: `"2Mi"`, yamlInput: `2Mi`, want: 2 * 1024 * 1024},
		{name: "invalid format", jsonInput: `"plenty"`, yamlInput: `plenty`, wantErr: true},
		{name: "negative value", jsonInput: `"-1024"`, yamlInput: `"-1024"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromJSON, fromYAML BytesCount
			jsonErr := json.Unmarshal([]byte(tt.jsonInput), &fromJSON)
			yamlErr := yaml.Unmarshal([]byte(tt.yamlInput), &fromYAML)
			if tt.wantErr {
				require.Error(t, jsonErr)
				require.Error(t, yamlErr)
				return
			}
			require.NoError(t, jsonErr)
			require.NoError(t, yamlErr)
			require.Equal(t, tt.want, fromJSON)
			require.Equal(t, tt.want, fromYAML)
		})
	}
}

func TestBytesCount_DecodeWithMapstructure(t *testing.T) {
	var dst struct {
		MaxSize BytesCount `mapstructure:"maxSize"`
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Result:     &dst,
	})
	require.NoError(t, err)
	require.NoError(t, dec.Decode(map[string]interface{}{"maxSize": "250M"}))
	require.Equal(t, BytesCount(250*1024*1024), dst.MaxSize)
}

func TestBytesCount_Marshal(t *testing.T) {
	b := BytesCount(100 * 1024 * 1024)
	require.Equal(t, "100M", b.String())

	jsonData, err := json.Marshal(struct {
		MaxSize BytesCount `json:"maxSize"`
	}{b})
	require.NoError(t, err)
	require.JSONEq(t, `{"maxSize":"100M"}`, string(jsonData))

	yamlData, err := yaml.Marshal(struct {
		MaxSize BytesCount `yaml:"maxSize"`
	}{b})
	require.NoError(t, err)
	require.Equal(t, "maxSize: 100M\n", string(yamlData))

	var back BytesCount
	require.NoError(t, yaml.Unmarshal([]byte("100M"), &back))
	require.Equal(t, b, back)
}
