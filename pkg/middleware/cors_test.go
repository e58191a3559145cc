package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveCORS(cfg CORSConfig, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/products", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	}
	rr := httptest.NewRecorder()
	CORS(cfg)(okHandler()).ServeHTTP(rr, req)
	return rr
}

func TestCORS_DevelopmentAllowsAnyOrigin(t *testing.T) {
	rr := serveCORS(CORSConfig{Environment: "development"}, http.MethodGet, "https://shop.local")

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORS_WildcardInList(t *testing.T) {
	rr := serveCORS(CORSConfig{AllowedOrigins: []string{"*"}, Environment: "production"}, http.MethodGet, "https://a.example")

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProductionAllowedOrigin(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://shop.example.com/"}, Environment: "production"}
	rr := serveCORS(cfg, http.MethodGet, "https://shop.example.com")

	assert.Equal(t, "https://shop.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rr.Header().Get("Vary"))
}

func TestCORS_ProductionRejectedOrigin(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://shop.example.com"}, Environment: "production"}
	rr := serveCORS(cfg, http.MethodGet, "https://evil.example")

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORS_Preflight(t *testing.T) {
	rr := serveCORS(CORSConfig{Environment: "development", MaxAge: 60}, http.MethodOptions, "https://shop.local")

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), CorrelationHeader)
	assert.Equal(t, CorrelationHeader, rr.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "60", rr.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_DefaultMaxAge(t *testing.T) {
	rr := serveCORS(CORSConfig{Environment: "development"}, http.MethodGet, "")

	assert.Equal(t, "3600", rr.Header().Get("Access-Control-Max-Age"))
}
