package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/scrypster/activity-architect/internal/config"
	"github.com/scrypster/activity-architect/internal/metrics"
	"github.com/scrypster/activity-architect/web/handlers"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func securityConfig(mode, token string) *config.Config {
	cfg := config.Default()
	cfg.Security = config.SecurityConfig{Mode: mode, APIToken: token}
	return cfg
}

func TestRequireAuth_SkipInDevelopmentMode(t *testing.T) {
	handler := handlers.RequireAuth(okHandler(), securityConfig("development", "secret"))

	req := httptest.NewRequest("GET", "/api/session", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_RejectMissingToken(t *testing.T) {
	handler := handlers.RequireAuth(okHandler(), securityConfig("production", "secret"))

	req := httptest.NewRequest("GET", "/api/session", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthorized")
}

func TestRequireAuth_RejectWrongToken(t *testing.T) {
	handler := handlers.RequireAuth(okHandler(), securityConfig("production", "secret"))

	for _, header := range []string{"Bearer nope", "secret", "Basic secret"} {
		req := httptest.NewRequest("GET", "/api/session", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRequireAuth_RejectWhenNoTokenConfigured(t *testing.T) {
	handler := handlers.RequireAuth(okHandler(), securityConfig("production", ""))

	req := httptest.NewRequest("GET", "/api/session", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_AcceptValidToken(t *testing.T) {
	handler := handlers.RequireAuth(okHandler(), securityConfig("production", "secret-token"))

	req := httptest.NewRequest("GET", "/api/session", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_AllowsNormalRate(t *testing.T) {
	limiter := handlers.NewRateLimiter(10, 20) // 10 req/s, burst 20
	handler := handlers.RateLimitMiddleware(okHandler(), limiter)

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/api/dimensions", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitMiddleware_RejectsExcessiveRate(t *testing.T) {
	limiter := handlers.NewRateLimiter(1, 2) // 1 req/s, burst 2
	handler := handlers.RateLimitMiddleware(okHandler(), limiter)

	// First 2 should succeed (burst)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/dimensions", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Third should be rate limited
	req := httptest.NewRequest("GET", "/api/dimensions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiter_ZeroRateIsUnlimited(t *testing.T) {
	handler := handlers.RateLimitMiddleware(okHandler(), handlers.NewRateLimiter(0, 1))

	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/dimensions", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestInstrument_RecordsStatus(t *testing.T) {
	const route = "GET /test/instrument"
	handler := handlers.Instrument(route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", route, "418"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test/instrument", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", route, "418")))
}

func TestInstrument_DefaultsToOK(t *testing.T) {
	const route = "GET /test/implicit"
	handler := handlers.Instrument(route, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", route, "200"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test/implicit", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", route, "200")))
}
