/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminapi

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"

	"github.com/statwatch/apisched/httpclient"
	"github.com/statwatch/apisched/log"
)

// requestIDAndLogging assigns a request id (taken from the request or generated),
// echoes it in the response and logs the served request.
func requestIDAndLogging(logger log.FieldLogger, logRequests bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			requestID := r.Header.Get(httpclient.RequestIDHeader)
			if requestID == "" {
				requestID = xid.New().String()
			}
			rw.Header().Set(httpclient.RequestIDHeader, requestID)

			wrw := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r)

			if !logRequests {
				return
			}
			status := wrw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("admin request served",
				log.String("request_id", requestID),
				log.String("method", r.Method),
				log.String("uri", r.RequestURI),
				log.Int("status", status),
				log.Int("bytes_sent", wrw.BytesWritten()),
				log.DurationIn(time.Since(startTime), time.Millisecond),
			)
		})
	}
}

// recovery converts a panic in a handler into a 500 response.
func recovery(logger log.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					const logStackSize = 8192
					stack := make([]byte, logStackSize)
					stack = stack[:runtime.Stack(stack, false)]
					logger.Error(fmt.Sprintf("panic: %+v", p), log.Bytes("stack", stack))
					RespondError(rw, http.StatusInternalServerError,
						&Error{Domain: ErrorDomain, Code: ErrCodeInternal, Message: "Internal error."}, logger)
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
