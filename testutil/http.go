/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/require"
)

const contentTypeAppJSON = "application/json"

// errorResponse mirrors the error body of the admin API: {"error": {"domain": ..., "code": ..., "message": ...}}.
type errorResponse struct {
	Error struct {
		Domain  string `json:"domain"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type httpResult struct {
	code   int
	header http.Header
	body   io.Reader
}

func fromRecorder(resp *httptest.ResponseRecorder) httpResult {
	return httpResult{code: resp.Code, header: resp.Header(), body: resp.Body}
}

func fromResponse(resp *http.Response) httpResult {
	return httpResult{code: resp.StatusCode, header: resp.Header, body: resp.Body}
}

// RequireErrorInRecorder asserts that the recorded response has the status code and carries the error with the domain and code.
func RequireErrorInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	markHelper(t)
	requireError(t, fromRecorder(resp), wantHTTPCode, wantErrDomain, wantErrCode)
}

// RequireErrorInResponse asserts that the response has the status code and carries the error with the domain and code.
func RequireErrorInResponse(t require.TestingT, resp *http.Response, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	markHelper(t)
	requireError(t, fromResponse(resp), wantHTTPCode, wantErrDomain, wantErrCode)
}

// RequireEmptyBodyInRecorder asserts that the recorded response has no body.
func RequireEmptyBodyInRecorder(t require.TestingT, resp *httptest.ResponseRecorder) {
	markHelper(t)
	require.Empty(t, readBody(t, fromRecorder(resp)))
}

// RequireEmptyBodyInResponse asserts that the response has no body.
func RequireEmptyBodyInResponse(t require.TestingT, resp *http.Response) {
	markHelper(t)
	require.Empty(t, readBody(t, fromResponse(resp)))
}

// RequireJSONInRecorder decodes the JSON body of the recorded response into dest and compares it with want.
func RequireJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, want, dest interface{}) {
	markHelper(t)
	requireJSON(t, fromRecorder(resp), want, dest)
}

// RequireJSONInResponse decodes the JSON body of the response into dest and compares it with want.
func RequireJSONInResponse(t require.TestingT, resp *http.Response, want, dest interface{}) {
	markHelper(t)
	requireJSON(t, fromResponse(resp), want, dest)
}

// RequireStringJSONInRecorder asserts that the recorded response body is exactly the JSON string.
func RequireStringJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, want string) {
	markHelper(t)
	res := fromRecorder(resp)
	require.Equal(t, contentTypeAppJSON, res.header.Get("Content-Type"))
	require.Equal(t, want, string(readBody(t, res)))
}

func requireError(t require.TestingT, res httpResult, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	markHelper(t)
	require.Equal(t, wantHTTPCode, res.code)
	require.Equal(t, contentTypeAppJSON, res.header.Get("Content-Type"))
	var errResp errorResponse
	require.NoError(t, json.Unmarshal(readBody(t, res), &errResp))
	require.Equal(t, wantErrDomain, errResp.Error.Domain)
	require.Equal(t, wantErrCode, errResp.Error.Code)
}

func requireJSON(t require.TestingT, res httpResult, want, dest interface{}) {
	markHelper(t)
	require.Equal(t, contentTypeAppJSON, res.header.Get("Content-Type"))
	require.NoError(t, json.Unmarshal(readBody(t, res), dest))
	require.Equal(t, want, dest)
}

func readBody(t require.TestingT, res httpResult) []byte {
	markHelper(t)
	data, err := io.ReadAll(res.body)
	require.NoError(t, err)
	return data
}
