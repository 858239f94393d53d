/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "net/http"

// HeaderUpdateStrategy defines what happens when the request already has the header.
type HeaderUpdateStrategy int

// Header update strategies.
const (
	// HeaderSetIfEmpty keeps a value set by the caller.
	HeaderSetIfEmpty HeaderUpdateStrategy = iota
	// HeaderAppend appends the static value to the caller's one separated by a space (used for User-Agent).
	HeaderAppend
)

// StaticHeader is a header added to all outgoing requests.
type StaticHeader struct {
	Name     string
	Value    string
	Strategy HeaderUpdateStrategy
}

// HeadersRoundTripper adds static headers (API key, User-Agent) to outgoing requests.
type HeadersRoundTripper struct {
	Delegate http.RoundTripper
	Headers  []StaticHeader
}

// NewHeadersRoundTripper creates a new HeadersRoundTripper. Headers with an empty name or value are skipped.
func NewHeadersRoundTripper(delegate http.RoundTripper, headers ...StaticHeader) *HeadersRoundTripper {
	rt := &HeadersRoundTripper{Delegate: delegate}
	for _, h := range headers {
		if h.Name != "" && h.Value != "" {
			rt.Headers = append(rt.Headers, h)
		}
	}
	return rt
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *HeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var cloned bool
	for _, h := range rt.Headers {
		val := h.Value
		if cur := req.Header.Get(h.Name); cur != "" {
			if h.Strategy != HeaderAppend {
				continue
			}
			val = cur + " " + val
		}
		if !cloned {
			req = CloneHTTPRequest(req) // Per RoundTripper contract.
			cloned = true
		}
		req.Header.Set(h.Name, val)
	}
	return rt.Delegate.RoundTrip(req)
}
