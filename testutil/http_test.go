/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testErrorBody = `{"error":{"domain":"ApiScheduler","code":"notFound","message":"Not found."}}`

func newRecorder(code int, contentType, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	if contentType != "" {
		rec.Header().Set("Content-Type", contentType)
	}
	rec.WriteHeader(code)
	_, _ = rec.WriteString(body)
	return rec
}

func newResponse(code int, contentType, body string) *http.Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &http.Response{StatusCode: code, Header: header, Body: io.NopCloser(strings.NewReader(body))}
}

func TestRequireErrorInRecorder(t *testing.T) {
	tests := []struct {
		name       string
		rec        *httptest.ResponseRecorder
		wantFailed bool
	}{
		{"matching error", newRecorder(http.StatusNotFound, contentTypeAppJSON, testErrorBody), false},
		{"another status", newRecorder(http.StatusBadRequest, contentTypeAppJSON, testErrorBody), true},
		{"another content type", newRecorder(http.StatusNotFound, "text/plain", testErrorBody), true},
		{"another domain", newRecorder(http.StatusNotFound, contentTypeAppJSON,
			`{"error":{"domain":"ProviderGateway","code":"notFound"}}`), true},
		{"another code", newRecorder(http.StatusNotFound, contentTypeAppJSON,
			`{"error":{"domain":"ApiScheduler","code":"internalError"}}`), true},
		{"malformed body", newRecorder(http.StatusNotFound, contentTypeAppJSON, `not json`), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt := &mockT{}
			RequireErrorInRecorder(mt, tt.rec, http.StatusNotFound, "ApiScheduler", "notFound")
			require.Equal(t, tt.wantFailed, mt.failed)
		})
	}
}

func TestRequireErrorInResponse(t *testing.T) {
	mt := &mockT{}
	RequireErrorInResponse(mt, newResponse(http.StatusNotFound, contentTypeAppJSON, testErrorBody),
		http.StatusNotFound, "ApiScheduler", "notFound")
	require.False(t, mt.failed)

	mt = &mockT{}
	RequireErrorInResponse(mt, newResponse(http.StatusOK, contentTypeAppJSON, `{}`),
		http.StatusNotFound, "ApiScheduler", "notFound")
	require.True(t, mt.failed)
}

func TestRequireEmptyBody(t *testing.T) {
	mt := &mockT{}
	RequireEmptyBodyInRecorder(mt, newRecorder(http.StatusNoContent, "", ""))
	require.False(t, mt.failed)

	mt = &mockT{}
	RequireEmptyBodyInRecorder(mt, newRecorder(http.StatusOK, contentTypeAppJSON, `{}`))
	require.True(t, mt.failed)

	mt = &mockT{}
	RequireEmptyBodyInResponse(mt, newResponse(http.StatusNoContent, "", ""))
	require.False(t, mt.failed)
}

func TestRequireJSON(t *testing.T) {
	type status struct {
		Running     bool `json:"running"`
		QueueLength int  `json:"queueLength"`
	}
	const body = `{"running":true,"queueLength":4}`

	mt := &mockT{}
	RequireJSONInRecorder(mt, newRecorder(http.StatusOK, contentTypeAppJSON, body), &status{true, 4}, &status{})
	require.False(t, mt.failed)

	mt = &mockT{}
	RequireJSONInRecorder(mt, newRecorder(http.StatusOK, contentTypeAppJSON, body), &status{false, 4}, &status{})
	require.True(t, mt.failed)

	mt = &mockT{}
	RequireJSONInResponse(mt, newResponse(http.StatusOK, contentTypeAppJSON, body), &status{true, 4}, &status{})
	require.False(t, mt.failed)

	mt = &mockT{}
	RequireStringJSONInRecorder(mt, newRecorder(http.StatusOK, contentTypeAppJSON, body), body)
	require.False(t, mt.failed)

	mt = &mockT{}
	RequireStringJSONInRecorder(mt, newRecorder(http.StatusOK, "text/plain", body), body)
	require.True(t, mt.failed)
}
