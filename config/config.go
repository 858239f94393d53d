/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads configuration of the application components from YAML/JSON files
// and environment variables. Every component describes its parameters with a type implementing Config.
package config

import "reflect"

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for providing key prefix that will be used for configuration parameters.
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// CallSetProviderDefaultsForFields finds all initialized (non-nil) exported fields of the passed struct pointer
// that implement Config interface and calls SetProviderDefaults() method for each of them.
func CallSetProviderDefaultsForFields(obj interface{}, dp DataProvider) {
	_ = forEachConfigField(obj, dp, func(cfg Config, cfgDP DataProvider) error {
		cfg.SetProviderDefaults(cfgDP)
		return nil
	})
}

// CallSetForFields finds all initialized (non-nil) exported fields of the passed struct pointer
// that implement Config interface and calls Set() method for each of them.
// It stops on the first error.
func CallSetForFields(obj interface{}, dp DataProvider) error {
	return forEachConfigField(obj, dp, func(cfg Config, cfgDP DataProvider) error {
		return cfg.Set(cfgDP)
	})
}

func forEachConfigField(obj interface{}, dp DataProvider, fn func(cfg Config, cfgDP DataProvider) error) error {
	el := reflect.ValueOf(obj).Elem()
	for i := 0; i < el.NumField(); i++ {
		if !el.Type().Field(i).IsExported() {
			continue
		}
		field := el.Field(i)
		if (field.Kind() == reflect.Ptr || field.Kind() == reflect.Interface) && field.IsNil() {
			continue
		}
		cfg, ok := field.Interface().(Config)
		if !ok {
			continue
		}
		if err := fn(cfg, dataProviderFor(cfg, dp)); err != nil {
			return err
		}
	}
	return nil
}

// dataProviderFor wraps dp with the key prefix of cfg if it has one.
func dataProviderFor(cfg interface{}, dp DataProvider) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}
