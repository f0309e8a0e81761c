package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/green-session-service/internal/config"
	"github.com/onegreenvn/green-session-service/internal/database/repository"
	"github.com/onegreenvn/green-session-service/internal/services/auth"
	"github.com/onegreenvn/green-session-service/internal/services/device"
	"github.com/onegreenvn/green-session-service/internal/services/events"
	"github.com/onegreenvn/green-session-service/internal/services/ratelimit"
)

func newTestRouter(t *testing.T, basePath string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryTokenStore()
	access := auth.NewAccessTokenManager("router-test-secret-that-is-long-enough", "test", time.Hour, time.Now)
	registry := prometheus.NewRegistry()
	metrics, err := events.NewMetricsPublisher(registry)
	require.NoError(t, err)

	tokens := auth.NewTokenService(store, access, device.NewParser(), metrics, auth.TokenPolicy{
		RefreshTokenTTL:   time.Hour,
		RefreshTokenBytes: 32,
		MaxRotations:      5,
	}, time.Now)
	sessions := auth.NewSessionCatalog(store, metrics, 50, time.Now)
	svc := auth.NewAuthService(auth.NewPasswordVerifier(repository.NewMemoryUserRepository()), tokens, sessions, access)

	cfg := &config.Config{BasePath: basePath}
	cfg.RateLimit.Login = config.RateRule{Limit: 2, Window: time.Minute}
	cfg.RateLimit.Refresh = config.RateRule{Limit: 2, Window: time.Minute}
	cfg.RateLimit.Logout = config.RateRule{Limit: 2, Window: time.Minute}

	return SetupRouter(cfg, Deps{
		AuthService: svc,
		Limiter:     ratelimit.NewMemoryLimiter(time.Now),
		Registry:    registry,
	})
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, "")

	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	// a failed rotation shows up in the counters
	serve(r, http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"nope"}`)

	w = serve(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "session_events_total")
}

func TestLoginIsRateLimited(t *testing.T) {
	r := newTestRouter(t, "")
	body := `{"email":"nobody@example.com","password":"x"}`

	for i := 0; i < 2; i++ {
		w := serve(r, http.MethodPost, "/api/v1/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := serve(r, http.MethodPost, "/api/v1/auth/login", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"error":"rate_limited"`)
	assert.Contains(t, w.Body.String(), `"success":false`)

	// other actions keep their own budget
	w = serve(r, http.MethodPost, "/api/v1/auth/logout", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireAccessToken(t *testing.T) {
	r := newTestRouter(t, "/session-service")

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/session-service/api/v1/auth/sessions"},
		{http.MethodGet, "/session-service/api/v1/auth/sessions/export"},
		{http.MethodDelete, "/session-service/api/v1/auth/sessions/abc"},
		{http.MethodPost, "/session-service/api/v1/auth/logout-all"},
	} {
		w := serve(r, route.method, route.path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}

	w := serve(r, http.MethodGet, "/session-service/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
