/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bytes"

	"github.com/statwatch/apisched/config"
	"github.com/statwatch/apisched/httpclient"
	"github.com/statwatch/apisched/internal/adminapi"
	"github.com/statwatch/apisched/internal/poller"
	"github.com/statwatch/apisched/log"
	"github.com/statwatch/apisched/scheduler"
)

const envVarsPrefix = "APISCHED"

// AppConfig aggregates configurations of all application components.
type AppConfig struct {
	Log         *log.Config        `yaml:"log"`
	Scheduler   *scheduler.Config  `yaml:"scheduler"`
	HTTPClient  *httpclient.Config `yaml:"httpClient"`
	AdminServer *adminapi.Config   `yaml:"adminServer"`
	Poller      *poller.Config     `yaml:"poller"`
}

var _ config.Config = (*AppConfig)(nil)

// NewAppConfig creates a new AppConfig with empty component configurations.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:         log.NewConfig(),
		Scheduler:   scheduler.NewConfig(),
		HTTPClient:  httpclient.NewConfig(),
		AdminServer: adminapi.NewConfig(),
		Poller:      poller.NewConfig(),
	}
}

// LoadAppConfig loads application configuration from the file and APISCHED_* environment variables.
// Only defaults and environment variables are used when path is empty.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := NewAppConfig()
	loader := config.NewDefaultLoader(envVarsPrefix)
	if path == "" {
		if err := loader.LoadFromReader(bytes.NewReader(nil), config.DataTypeYAML, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err := loader.LoadFromFile(path, "", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetProviderDefaults sets default configuration values of all components.
// Implements config.Config interface.
func (c *AppConfig) SetProviderDefaults(dp config.DataProvider) {
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set sets configuration values of all components.
// Implements config.Config interface.
func (c *AppConfig) Set(dp config.DataProvider) error {
	return config.CallSetForFields(c, dp)
}
