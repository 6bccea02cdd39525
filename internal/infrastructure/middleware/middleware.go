// Package middleware correlates declaration requests across log lines and
// records one access entry per request
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader carries the correlation id in both directions
const RequestIDHeader = "X-Request-ID"

// Client-supplied ids end up in every log line of a declaration run
var clientRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestIDMiddleware attaches a request id to the context and echoes it in
// the response. A well-formed X-Request-ID from the client is reused so a
// bot can match its upload to the run; anything else is replaced.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !clientRequestID.MatchString(requestID) {
			requestID = NewRequestID()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

// AccessLog writes one entry per request once the response is done. Uploads
// announcing more than maxUploadBytes are flagged before the handler runs,
// since the handler rejects them without reading the body.
func AccessLog(log logger.Logger, maxUploadBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := GetRequestID(r.Context())
			route := routeOf(r)

			if maxUploadBytes > 0 && r.ContentLength > maxUploadBytes {
				log.Warn("Upload exceeds limit", map[string]interface{}{
					"request_id":   requestID,
					"route":        route,
					"upload_bytes": r.ContentLength,
					"upload_limit": maxUploadBytes,
				})
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := map[string]interface{}{
				"request_id":     requestID,
				"method":         r.Method,
				"route":          route,
				"status":         rec.status,
				"duration_ms":    time.Since(start).Milliseconds(),
				"response_bytes": rec.written,
			}
			if r.ContentLength > 0 {
				fields["upload_bytes"] = r.ContentLength
				fields["upload_limit"] = maxUploadBytes
			}

			switch {
			case rec.status >= http.StatusInternalServerError:
				log.Error("Request failed", fields)
			case rec.status >= http.StatusBadRequest:
				log.Warn("Request rejected", fields)
			default:
				log.Info("Request served", fields)
			}
		})
	}
}

// routeOf prefers the matched route template so ledger ids and other path
// values stay out of the access log
func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// WithRequestID stores id in ctx so services can correlate their log lines.
// Non-HTTP entry points such as the CLI use it with a fresh uuid.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// NewRequestID returns a random request identifier
func NewRequestID() string {
	return uuid.New().String()
}

// GetRequestID returns the id attached by WithRequestID, or "unknown"
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id
	}
	return "unknown"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	written     int64
}

func (rec *statusRecorder) WriteHeader(status int) {
	if !rec.wroteHeader {
		rec.status = status
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.wroteHeader = true
	n, err := rec.ResponseWriter.Write(b)
	rec.written += int64(n)
	return n, err
}
