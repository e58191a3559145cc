package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/pkg/logger"
)

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestRequestLogging_ReusesIncomingCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", logger.FormatJSON, &buf)

	var seen string
	h := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set(CorrelationHeader, "corr-abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "corr-abc", seen)
	assert.Equal(t, "corr-abc", rec.Header().Get(CorrelationHeader))

	logged := lines(t, &buf)
	require.Len(t, logged, 1)
	assert.Equal(t, "http request", logged[0]["msg"])
	assert.Equal(t, "corr-abc", logged[0]["correlation_id"])
	assert.Equal(t, float64(http.StatusTeapot), logged[0]["status"])
	assert.Equal(t, "/api/v1/categories", logged[0]["path"])
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	h := RequestLogging(logger.Discard())(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, rec.Header().Get(CorrelationHeader), 36)
}

func TestRequestLogging_StoresScopedLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", logger.FormatJSON, &buf)

	h := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context(), nil).Info("inside handler")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "corr-scoped")
	h.ServeHTTP(httptest.NewRecorder(), req)

	logged := lines(t, &buf)
	require.Len(t, logged, 2)
	assert.Equal(t, "inside handler", logged[0]["msg"])
	assert.Equal(t, "corr-scoped", logged[0]["correlation_id"])
}

func TestRequestLogging_ServerErrorsLogAtWarn(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", logger.FormatJSON, &buf)

	h := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	logged := lines(t, &buf)
	require.Len(t, logged, 1)
	assert.Equal(t, "WARN", logged[0]["level"])
}

func TestRecovery_ReturnsJSON500(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", logger.FormatJSON, &buf)

	h := RequestLogging(logger.Discard())(Recovery(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "corr-panic")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t,
		`{"error":{"code":"INTERNAL_ERROR","message":"an internal error occurred","request_id":"corr-panic"}}`,
		rec.Body.String())
}

func TestRecovery_UsesFallbackLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter("test", "info", logger.FormatJSON, &buf)

	h := Recovery(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "kaboom")
}
