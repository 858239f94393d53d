/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminapi

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/statwatch/apisched/log"
)

// ContentTypeAppJSON represents MIME media type for JSON.
const ContentTypeAppJSON = "application/json"

// ErrorDomain is the domain of all errors returned by the admin API.
const ErrorDomain = "ApiScheduler"

// Error codes.
const (
	ErrCodeNotFound         = "notFound"
	ErrCodeMethodNotAllowed = "methodNotAllowed"
	ErrCodeInternal         = "internalError"
)

// Error represents an error returned in the response body.
type Error struct {
	Domain  string `json:"domain"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ErrorResponseData wraps Error in the response body.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

func jsonMarshal(v interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes()[:buffer.Len()-1], nil
}

// RespondJSON sends a response with 200 HTTP status code and JSON-encoded data in the body.
func RespondJSON(rw http.ResponseWriter, respData interface{}, logger log.FieldLogger) {
	RespondCodeAndJSON(rw, http.StatusOK, respData, logger)
}

// RespondCodeAndJSON sends a response with the passed status code and JSON-encoded data in the body.
func RespondCodeAndJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	if respData == nil {
		rw.WriteHeader(statusCode)
		return
	}
	if rw.Header().Get("Content-Type") == "" {
		rw.Header().Set("Content-Type", ContentTypeAppJSON)
	}
	respJSON, err := jsonMarshal(respData)
	if err != nil {
		logger.Error("error while marshaling json for response body", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	rw.WriteHeader(statusCode)
	if _, err = rw.Write(respJSON); err != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

// RespondError sends a response with the passed status code and the wrapped error in the body.
func RespondError(rw http.ResponseWriter, statusCode int, apiErr *Error, logger log.FieldLogger) {
	logger.Warn("error in response",
		log.Int("status", statusCode), log.String("error_code", apiErr.Code), log.String("error_message", apiErr.Message))
	RespondCodeAndJSON(rw, statusCode, ErrorResponseData{apiErr}, logger)
}
