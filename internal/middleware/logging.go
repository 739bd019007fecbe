// Package middleware provides the HTTP middleware shared by server entrypoints.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/harlley/mekane-share/internal/logger"
)

// RequestID attaches a request id to the context, taking the X-Request-ID
// header when a proxy supplies one and generating a fresh id otherwise.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := logger.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestLogging logs each request on arrival and again on completion with the
// response status and duration.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger.Info(ctx, "incoming request", logger.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"remote": r.RemoteAddr,
		})

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(wrapped, r)

		logger.Info(ctx, "request completed", logger.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": wrapped.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// statusWriter captures the status code written by downstream handlers.
type statusWriter struct {
	http.ResponseWriter
	status        int
	headerWritten bool
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.headerWritten = true
	sw.ResponseWriter.WriteHeader(code)
}

// Write implicitly commits a 200 status when WriteHeader was never called.
func (sw *statusWriter) Write(data []byte) (int, error) {
	if !sw.headerWritten {
		sw.status = http.StatusOK
		sw.headerWritten = true
	}
	return sw.ResponseWriter.Write(data)
}
