/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/statwatch/apisched/scheduler"
)

// MaxResponseBodySize limits the number of bytes read from a response body.
const MaxResponseBodySize = 10 << 20

// StatusError is returned when the provider responds with a non-successful HTTP status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

// Error returns a string representation of the status error.
func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status code %d", e.Method, e.URL, e.StatusCode)
	if len(e.Body) != 0 {
		const maxBodyInMsg = 256
		body := strings.TrimSpace(string(e.Body))
		if len(body) > maxBodyInMsg {
			body = body[:maxBodyInMsg] + "..."
		}
		msg += ": " + body
	}
	return msg
}

// RequestFactory creates a new HTTP request for every execution attempt.
type RequestFactory func(ctx context.Context) (*http.Request, error)

// NewGetRequestFactory returns a RequestFactory for GET requests to the given URL.
func NewGetRequestFactory(url string) RequestFactory {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

// NewOperation adapts an HTTP request into a scheduler.Operation that returns the raw response body.
// HTTP 429 is reported as *scheduler.ThrottlingError with the delay from the Retry-After header,
// other 4xx/5xx statuses are reported as *StatusError.
func NewOperation(client *http.Client, newRequest RequestFactory) scheduler.Operation {
	return func(ctx context.Context) (interface{}, error) {
		return doRequest(ctx, client, newRequest)
	}
}

// JSONOperation returns a function that performs the HTTP request and decodes the JSON response body into T.
// It's intended to be used with scheduler.Do.
func JSONOperation[T any](client *http.Client, newRequest RequestFactory) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var result T
		body, err := doRequest(ctx, client, newRequest)
		if err != nil {
			return result, err
		}
		if err = json.Unmarshal(body, &result); err != nil {
			return result, fmt.Errorf("decode response body: %w", err)
		}
		return result, nil
	}
}

func doRequest(ctx context.Context, client *http.Client, newRequest RequestFactory) ([]byte, error) {
	req, err := newRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusBadRequest {
		return body, nil
	}
	statusErr := &StatusError{Method: req.Method, URL: req.URL.String(), StatusCode: resp.StatusCode, Body: body}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &scheduler.ThrottlingError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Err:        statusErr,
		}
	}
	return nil, statusErr
}

// ParseRetryAfter parses the value of the Retry-After header (delay in seconds or HTTP date).
// It returns 0 if the value is empty, malformed or in the past.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
