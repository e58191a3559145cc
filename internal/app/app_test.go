package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/pkg/logger"
)

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"products":[
			{"id":1,"name":"Red Mug","category":"home","priceType":"fixed","price":10,"createdAt":"2024-01-01 10:00:00"},
			{"id":2,"name":"Blue Mug","category":"home","priceType":"fixed","price":5,"createdAt":"2024-02-01 10:00:00"}
		]}`)
	})
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok","message":"Shop Pro API is running"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func loadConfig(t *testing.T, backendURL string) *config.Config {
	t.Helper()
	t.Setenv("STOREFRONT_API_BASE_URL", backendURL+"/api")
	t.Setenv("STOREFRONT_HTTP_PORT", strconv.Itoa(freePort(t)))
	t.Setenv("CATALOG_REFRESH_INTERVAL", "50ms")
	t.Setenv("NOTIFY_SINKS", "log")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestNewApp_ReadyOnlyAfterFirstRefresh(t *testing.T) {
	backend := fakeBackend(t)
	a, err := NewApp(loadConfig(t, backend.URL), logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, serve(t, a.Handler(), "/health/ready").Code)

	require.NoError(t, a.engine.Refresh(context.Background()))

	w := serve(t, a.Handler(), "/health/ready")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "up", body.Status)
	assert.Equal(t, "up", body.Checks["catalog"].Status)
	assert.Equal(t, "up", body.Checks["backend"].Status)
}

func TestNewApp_ServesCatalogAndStats(t *testing.T) {
	backend := fakeBackend(t)
	a, err := NewApp(loadConfig(t, backend.URL), logger.Discard())
	require.NoError(t, err)
	require.NoError(t, a.engine.Refresh(context.Background()))

	w := serve(t, a.Handler(), "/api/v1/products?sort=price-low")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Blue Mug"`)

	w = serve(t, a.Handler(), "/api/v1/users/1/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"products":2`)
}

func TestNewApp_FailedCallsReachNotificationFeed(t *testing.T) {
	backend := fakeBackend(t)
	a, err := NewApp(loadConfig(t, backend.URL), logger.Discard())
	require.NoError(t, err)

	// /cart is not served by the fake backend.
	_, res := a.shop.Cart(context.Background(), 1)
	assert.Equal(t, http.StatusNotFound, res.Status)

	w := serve(t, a.Handler(), "/api/v1/notifications")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Error: ")
}

func TestRun_RefreshesAndStopsOnCancel(t *testing.T) {
	backend := fakeBackend(t)
	a, err := NewApp(loadConfig(t, backend.URL), logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.engine.Snapshot().Version >= 2 }, 3*time.Second, 20*time.Millisecond)
	assert.True(t, a.engine.Ready())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewApp_RedisSinkUnreachable(t *testing.T) {
	backend := fakeBackend(t)
	t.Setenv("REDIS_ADDR", "127.0.0.1:"+strconv.Itoa(freePort(t)))
	cfg := loadConfig(t, backend.URL)
	cfg.NotifySinks = []string{config.SinkLog, config.SinkRedis}

	_, err := NewApp(cfg, logger.Discard())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}
