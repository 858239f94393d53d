/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Loader fills configuration objects from a DataProvider.
// Defaults of all objects are registered before any of them is read,
// so one section may rely on the defaults of another.
type Loader struct {
	DataProvider DataProvider
}

// NewDefaultLoader creates a viper-backed Loader where environment variables override file values.
// E.g., with "APISCHED" prefix the "scheduler.shortWindow.limit" parameter
// may be overridden by APISCHED_SCHEDULER_SHORTWINDOW_LIMIT variable.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// NewLoader creates a Loader reading values from dp.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{DataProvider: dp}
}

// DataTypeFromPath detects the data format by the file extension (.yaml, .yml or .json).
func DataTypeFromPath(path string) (DataType, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return DataTypeYAML, nil
	case ".json":
		return DataTypeJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file extension %q, should be one of [.yaml .yml .json]", ext)
	}
}

// LoadFromFile reads the file and fills the given configuration objects.
// An empty dataType means it is detected with DataTypeFromPath.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfgs ...Config) error {
	if dataType == "" {
		var err error
		if dataType, err = DataTypeFromPath(path); err != nil {
			return err
		}
	}
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	return l.load(cfgs)
}

// LoadFromReader reads data in the given format and fills the configuration objects.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(reader, dataType); err != nil {
		return fmt.Errorf("read config data: %w", err)
	}
	return l.load(cfgs)
}

func (l *Loader) load(cfgs []Config) error {
	if len(cfgs) == 0 {
		return fmt.Errorf("no configuration objects to load")
	}
	for _, cfg := range cfgs {
		cfg.SetProviderDefaults(dataProviderFor(cfg, l.DataProvider))
	}
	for _, cfg := range cfgs {
		if err := cfg.Set(dataProviderFor(cfg, l.DataProvider)); err != nil {
			return err
		}
	}
	return nil
}
