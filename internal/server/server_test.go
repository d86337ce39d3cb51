package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"patrolops/api/internal/config"
	"patrolops/api/internal/docstore"
	"patrolops/api/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv := NewServer(cfg, docstore.NewMemory(), nil, zap.NewNop())
	require.NoError(t, srv.Setup(context.Background()))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.StoreBackend = docstore.BackendMemory
	cfg.Timezone = "UTC"
	return cfg
}

func serve(srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.GetRouter().ServeHTTP(w, req)
	return w
}

func TestServerSeedsAndServes(t *testing.T) {
	srv := newTestServer(t, testConfig())

	w := serve(srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","store":"memory","nats":"disabled","jetstream":"disabled","ws_clients":0}`, w.Body.String())

	w = serve(srv, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "alpha", "password": "123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login model.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, model.RoleDirector, login.User.Role)

	w = serve(srv, http.MethodGet, "/api/v1/catalogs/operative_types", login.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(srv, http.MethodGet, "/api/v1/users", login.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "directors do not manage users")

	w = serve(srv, http.MethodGet, "/api/v1/operatives", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(srv, http.MethodOptions, "/api/v1/operatives", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "patrolops_http_requests_total")
}

func TestServerLoginRateLimit(t *testing.T) {
	cfg := testConfig()
	srv := newTestServer(t, cfg)
	limit := cfg.GetRateLimitRuleForPath("/api/v1/auth/login").Limit

	for i := 0; i < limit; i++ {
		w := serve(srv, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "admin", "password": "wrong"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := serve(srv, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "admin", "password": "adm123"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestServerWithoutRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = false
	srv := newTestServer(t, cfg)

	for i := 0; i < 10; i++ {
		w := serve(srv, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "admin", "password": "wrong"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
}
