package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/activity-architect/internal/catalog"
	"github.com/scrypster/activity-architect/internal/config"
	"github.com/scrypster/activity-architect/internal/server"
	"github.com/scrypster/activity-architect/internal/session"
	"github.com/scrypster/activity-architect/internal/storage"
	"github.com/scrypster/activity-architect/internal/storage/sqlite"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.RateLimit = 0 // unlimited
	return cfg
}

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return c
}

// startTestServer starts a server over the embedded catalog and an
// in-memory SQLite store. It returns the base URL; shutdown is registered
// with t.Cleanup.
func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()

	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err, "failed to create in-memory SQLite store")
	breaker := storage.NewBreaker(store, storage.DefaultBreakerConfig())

	sess, err := session.New(context.Background(), defaultCatalog(t), breaker, session.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	addr, done, err := server.Start(ctx, cfg, sess, server.Options{
		Version:    "test",
		StoreState: breaker.State,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		cancel()
		<-done
		_ = store.Close()
	})
	return "http://" + addr
}

func get(t *testing.T, url string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServer_StartsOnRandomPort(t *testing.T) {
	baseURL := startTestServer(t, testConfig())
	assert.True(t, strings.HasPrefix(baseURL, "http://127.0.0.1:"))
	assert.NotEqual(t, "http://127.0.0.1:0", baseURL)
}

func TestServer_HealthEndpoint(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	resp := get(t, baseURL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var health server.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "closed", health.Store)
}

func TestServer_SecurityHeaders(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	resp := get(t, baseURL+"/api/dimensions", nil)
	expectedHeaders := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for headerName, expectedValue := range expectedHeaders {
		assert.Equal(t, expectedValue, resp.Header.Get(headerName), "header %q", headerName)
	}
}

func TestServer_ServesDefaultCatalog(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	resp := get(t, baseURL+"/api/dimensions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 57, body.Count)
}

func TestServer_MatchRoundTrip(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	resp, err := http.Post(baseURL+"/api/match", "application/json",
		strings.NewReader(`{"targets":{"risk":9,"physical_exertion":9},"tolerance":1}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		State  string   `json:"state"`
		Active []string `json:"active"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.State)
	assert.Len(t, body.Active, 2)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	get(t, baseURL+"/api/dimensions", nil)
	resp := get(t, baseURL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "architect_http_requests_total")
}

func TestServer_ProductionMode_RequiresAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security.Mode = "production"
	cfg.Security.APIToken = "secret-token"
	baseURL := startTestServer(t, cfg)

	resp := get(t, baseURL+"/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(t, baseURL+"/api/session", http.Header{"Authorization": []string{"Bearer secret-token"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// health stays open for liveness checks
	resp = get(t, baseURL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 1
	cfg.Server.RateBurst = 1
	baseURL := startTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, get(t, baseURL+"/healthz", nil).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, get(t, baseURL+"/healthz", nil).StatusCode)
}

func TestServer_NotFoundHandling(t *testing.T) {
	baseURL := startTestServer(t, testConfig())

	assert.Equal(t, http.StatusNotFound, get(t, baseURL+"/nope", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, baseURL+"/api/nope", nil).StatusCode)
}

func TestServer_GracefulShutdown(t *testing.T) {
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	sess, err := session.New(context.Background(), defaultCatalog(t), store, session.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, done, err := server.Start(ctx, testConfig(), sess, server.Options{})
	require.NoError(t, err)

	baseURL := "http://" + addr
	resp, err := http.Get(baseURL + "/healthz")
	require.NoError(t, err, "server should be responding before shutdown")
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server shutdown timed out")
	}

	client := &http.Client{Timeout: 2 * time.Second}
	_, err = client.Get(baseURL + "/healthz")
	assert.Error(t, err, "server should stop responding after shutdown")
}

func TestServer_ListenError(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = -1

	sess, err := session.New(context.Background(), defaultCatalog(t), nil, session.Options{})
	require.NoError(t, err)
	_, _, err = server.Start(context.Background(), cfg, sess, server.Options{})
	assert.Error(t, err)
}
