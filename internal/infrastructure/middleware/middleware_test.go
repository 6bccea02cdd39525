package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestRequestIDMiddleware(t *testing.T) {
	echo := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetRequestID(r.Context())))
	}))

	tests := []struct {
		name     string
		clientID string
		keep     bool
	}{
		{name: "Generated when absent", clientID: ""},
		{name: "Bot correlation id is reused", clientID: "tg-update-4411", keep: true},
		{name: "Id with spaces is replaced", clientID: "run 1"},
		{name: "Id with a newline is replaced", clientID: "abc\ninjected"},
		{name: "Overlong id is replaced", clientID: strings.Repeat("a", 65)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/declarations/file", nil)
			if tt.clientID != "" {
				req.Header.Set(RequestIDHeader, tt.clientID)
			}
			w := httptest.NewRecorder()

			echo.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			assert.Equal(t, got, w.Body.String())
			if tt.keep {
				assert.Equal(t, tt.clientID, got)
			} else {
				assert.NotEqual(t, tt.clientID, got)
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestGetRequestID(t *testing.T) {
	assert.Equal(t, "unknown", GetRequestID(context.Background()))

	ctx := WithRequestID(context.Background(), "cli-run")
	assert.Equal(t, "cli-run", GetRequestID(ctx))

	assert.NotEqual(t, NewRequestID(), NewRequestID())
}

func TestAccessLog(t *testing.T) {
	const limit = 1024

	serve := func(t *testing.T, status int, req *http.Request) []map[string]interface{} {
		t.Helper()
		var buf bytes.Buffer
		router := mux.NewRouter()
		router.Use(RequestIDMiddleware)
		router.Use(AccessLog(logger.NewJSONLogger(&buf, logger.InfoLevel), limit))
		router.HandleFunc("/rates/{currency}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{}`))
		})
		router.HandleFunc("/declarations/file", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}).Methods(http.MethodPost)

		router.ServeHTTP(httptest.NewRecorder(), req)
		return logEntries(t, &buf)
	}

	t.Run("Logs the route template, not the path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rates/USD", nil)
		req.Header.Set(RequestIDHeader, "rate-check-1")

		entries := serve(t, http.StatusOK, req)

		require.Len(t, entries, 1)
		assert.Equal(t, "Request served", entries[0]["message"])
		assert.Equal(t, "info", entries[0]["level"])
		assert.Equal(t, "/rates/{currency}", entries[0]["route"])
		assert.Equal(t, "rate-check-1", entries[0]["request_id"])
		assert.Equal(t, float64(2), entries[0]["response_bytes"])
		assert.NotContains(t, entries[0], "upload_bytes")
	})

	t.Run("Upload within the limit records its size", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/declarations/file", strings.NewReader(strings.Repeat("x", 100)))

		entries := serve(t, http.StatusOK, req)

		require.Len(t, entries, 1)
		assert.Equal(t, float64(100), entries[0]["upload_bytes"])
		assert.Equal(t, float64(limit), entries[0]["upload_limit"])
	})

	t.Run("Oversized upload is flagged before the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/declarations/file", strings.NewReader(strings.Repeat("x", limit+1)))

		entries := serve(t, http.StatusRequestEntityTooLarge, req)

		require.Len(t, entries, 2)
		assert.Equal(t, "Upload exceeds limit", entries[0]["message"])
		assert.Equal(t, float64(limit+1), entries[0]["upload_bytes"])
		assert.Equal(t, "Request rejected", entries[1]["message"])
		assert.Equal(t, "warn", entries[1]["level"])
		assert.Equal(t, float64(http.StatusRequestEntityTooLarge), entries[1]["status"])
		assert.Equal(t, entries[0]["request_id"], entries[1]["request_id"])
	})

	t.Run("Server errors are logged as errors", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/rates/EUR", nil)

		entries := serve(t, http.StatusServiceUnavailable, req)

		require.Len(t, entries, 1)
		assert.Equal(t, "Request failed", entries[0]["message"])
		assert.Equal(t, "error", entries[0]["level"])
	})

	t.Run("Outside a router the raw path is logged", func(t *testing.T) {
		var buf bytes.Buffer
		h := AccessLog(logger.NewJSONLogger(&buf, logger.InfoLevel), limit)(http.NotFoundHandler())

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

		entries := logEntries(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "/nowhere", entries[0]["route"])
		assert.Equal(t, float64(http.StatusNotFound), entries[0]["status"])
		assert.Equal(t, "unknown", entries[0]["request_id"])
	})
}
