/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds the HTTP client used by operations that call the game-statistics API
// and adapts HTTP requests into scheduler operations.
package httpclient

import (
	"context"
	"net/http"

	"github.com/statwatch/apisched/internal/libinfo"
	"github.com/statwatch/apisched/log"
)

// DefaultRequestType is used when Opts.RequestType is empty.
const DefaultRequestType = "provider"

// CloneHTTPRequest creates a shallow copy of the request along with a deep copy of the Headers.
func CloneHTTPRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = CloneHTTPHeader(req.Header)
	return r
}

// CloneHTTPHeader creates a deep copy of an http.Header.
func CloneHTTPHeader(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		newValues := make([]string, len(values))
		copy(newValues, values)
		out[key] = newValues
	}
	return out
}

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// UserAgent is a user agent string. libinfo.UserAgent() is used by default.
	UserAgent string

	// RequestType is a type of request, e.g. a provider name or an API family. DefaultRequestType is used by default.
	RequestType string

	// Delegate is the next RoundTripper in the chain. A clone of http.DefaultTransport is used by default.
	Delegate http.RoundTripper

	// Logger is used by the logging round tripper when LoggerProvider is nil.
	Logger log.FieldLogger

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// RequestIDProvider is a function that provides a request ID. A new xid is generated by default.
	RequestIDProvider func(ctx context.Context) string

	// Collector is a metrics collector.
	Collector MetricsCollector
}

// New wraps the default transport with logging, metrics, auth header, user agent and request id round trippers
// and returns an error if any occurs.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// Must is like New but panics if any error occurs.
func Must(cfg *Config) *http.Client {
	client, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// NewWithOpts wraps delegate transports with options
// logging, metrics, auth header, user agent, request id
// and returns an error if any occurs.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}
	requestType := opts.RequestType
	if requestType == "" {
		requestType = DefaultRequestType
	}

	if cfg.Logger.Enabled {
		logOpts := cfg.Logger.TransportOpts()
		logOpts.LoggerProvider = opts.LoggerProvider
		if logOpts.LoggerProvider == nil && opts.Logger != nil {
			logger := opts.Logger
			logOpts.LoggerProvider = func(context.Context) log.FieldLogger { return logger }
		}
		delegate = NewLoggingRoundTripperWithOpts(delegate, requestType, logOpts)
	}

	if cfg.Metrics.Enabled && opts.Collector != nil {
		delegate = NewMetricsRoundTripperWithOpts(delegate, MetricsRoundTripperOpts{
			RequestType: requestType,
			Collector:   opts.Collector,
		})
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = libinfo.UserAgent()
	}
	delegate = NewHeadersRoundTripper(delegate,
		StaticHeader{Name: cfg.Auth.Header, Value: cfg.Auth.Token},
		StaticHeader{Name: "User-Agent", Value: userAgent},
	)

	delegate = NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{
		RequestIDProvider: opts.RequestIDProvider,
	})

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// MustWithOpts is like NewWithOpts but panics if any error occurs.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}
