/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DataType is a type of data format in which configuration may be described.
type DataType string

// Supported data formats.
const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// DataProvider gives typed access to configuration values merged from a file or reader,
// defaults and environment variables. Keys are dot-separated ("scheduler.shortWindow.limit").
type DataProvider interface {
	// UseEnvVars makes env vars override values, e.g. APISCHED_SCHEDULER_DEFAULTTIMEOUT for prefix "apisched".
	UseEnvVars(prefix string)

	Set(key string, value interface{})
	SetDefault(key string, value interface{})

	SetFromFile(path string, dataType DataType) error
	SetFromReader(reader io.Reader, dataType DataType) error

	IsSet(key string) bool

	Get(key string) interface{}
	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetString(key string) (string, error)
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)
	// GetDuration accepts strings like "1s" or "2m"; plain integers are nanoseconds.
	GetDuration(key string) (time.Duration, error)
	// GetBytesCount accepts numbers and sizes like "64M" or "64Mi".
	GetBytesCount(key string) (BytesCount, error)

	Unmarshal(rawVal interface{}, opts ...DecoderConfigOption) error
	UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error

	// WrapKeyErr prefixes err with the full key, so validation errors point to the offending setting.
	WrapKeyErr(key string, err error) error
}

// DecoderConfigOption tunes the mapstructure decoder used by Unmarshal and UnmarshalKey
// (e.g. ErrorUnused for strict decoding of poll targets).
type DecoderConfigOption func(*mapstructure.DecoderConfig)

// WrapKeyErrIfNeeded wraps error adding information about a key where this error occurs.
// If error is nil, it does nothing.
func WrapKeyErrIfNeeded(key string, err error) error {
	if err == nil {
		return nil
	}
	return WrapKeyErr(key, err)
}

// WrapKeyErr wraps error adding information about a key where this error occurs.
func WrapKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}
