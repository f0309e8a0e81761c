package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/onegreenvn/green-session-service/internal/database/repository"
	"github.com/onegreenvn/green-session-service/internal/middleware"
	"github.com/onegreenvn/green-session-service/internal/models"
	"github.com/onegreenvn/green-session-service/internal/services/auth"
	"github.com/onegreenvn/green-session-service/internal/services/device"
	"github.com/onegreenvn/green-session-service/internal/services/events"
	"github.com/onegreenvn/green-session-service/internal/services/excel"
)

const testUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	engine *gin.Engine
	store  *repository.MemoryTokenStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	users := repository.NewMemoryUserRepository()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &models.User{
		ID: "user-1", Email: "alice@example.com", PasswordHash: string(hash),
	}))

	store := repository.NewMemoryTokenStore()
	access := auth.NewAccessTokenManager("handler-test-secret-that-is-long-enough", "test", time.Hour, time.Now)
	tokens := auth.NewTokenService(store, access, device.NewParser(), events.Nop{}, auth.TokenPolicy{
		RefreshTokenTTL:   time.Hour,
		RefreshTokenBytes: 32,
		MaxRotations:      10,
	}, time.Now)
	sessions := auth.NewSessionCatalog(store, events.Nop{}, 50, time.Now)
	svc := auth.NewAuthService(auth.NewPasswordVerifier(users), tokens, sessions, access)

	authHandler := NewAuthHandler(svc)
	sessionHandler := NewSessionHandler(svc, excel.NewExcelService())
	bearer := middleware.NewBearerTokenMiddleware(svc)

	r := gin.New()
	r.POST("/auth/login", authHandler.Login)
	r.POST("/auth/refresh", authHandler.RefreshToken)
	r.POST("/auth/logout", authHandler.Logout)
	protected := r.Group("/auth", bearer.BearerTokenAuth())
	protected.POST("/logout-all", authHandler.LogoutAll)
	protected.GET("/sessions", sessionHandler.ListSessions)
	protected.GET("/sessions/export", sessionHandler.ExportSessions)
	protected.DELETE("/sessions/:id", sessionHandler.RevokeSession)

	return &testServer{engine: r, store: store}
}

func (s *testServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", testUA)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T) models.TokenPair {
	t.Helper()
	w := s.do(http.MethodPost, "/auth/login", models.LoginRequest{Email: "alice@example.com", Password: "s3cret-pass"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pair models.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	return pair
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Error
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	pair := s.login(t)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	w := s.do(http.MethodPost, "/auth/login", models.LoginRequest{Email: "alice@example.com", Password: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, w))

	w = s.do(http.MethodPost, "/auth/login", map[string]string{"email": "alice@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", errorCode(t, w))
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	s := newTestServer(t)
	first := s.login(t)

	w := s.do(http.MethodPost, "/auth/refresh", models.RefreshTokenRequest{RefreshToken: first.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second models.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// bearer form
	w = s.do(http.MethodPost, "/auth/refresh", nil, bearer(second.RefreshToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// replaying a retired secret is rejected
	w = s.do(http.MethodPost, "/auth/refresh", models.RefreshTokenRequest{RefreshToken: first.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token_not_found", errorCode(t, w))

	w = s.do(http.MethodPost, "/auth/refresh", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	pair := s.login(t)

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/auth/logout", models.LogoutRequest{RefreshToken: pair.RefreshToken}, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ok":true`)
	}

	w := s.do(http.MethodPost, "/auth/refresh", models.RefreshTokenRequest{RefreshToken: pair.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionsListAndRevoke(t *testing.T) {
	s := newTestServer(t)
	laptop := s.login(t)
	phone := s.login(t)

	headers := bearer(laptop.AccessToken)
	headers[RefreshTokenHeader] = laptop.RefreshToken

	w := s.do(http.MethodGet, "/auth/sessions", nil, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var list models.SessionListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 2)
	assert.NotContains(t, w.Body.String(), laptop.RefreshToken)

	var phoneID string
	current := 0
	for _, v := range list.Sessions {
		if v.IsCurrent {
			current++
		} else {
			phoneID = v.ID
		}
		assert.Contains(t, v.Browser, "Safari")
	}
	assert.Equal(t, 1, current)

	w = s.do(http.MethodDelete, "/auth/sessions/"+phoneID, nil, bearer(laptop.AccessToken))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/auth/sessions/"+phoneID, nil, bearer(laptop.AccessToken))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "session_not_found", errorCode(t, w))

	w = s.do(http.MethodPost, "/auth/refresh", models.RefreshTokenRequest{RefreshToken: phone.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/auth/sessions", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutAllKeepsCurrentByDefault(t *testing.T) {
	s := newTestServer(t)
	laptop := s.login(t)
	phone := s.login(t)
	tablet := s.login(t)

	w := s.do(http.MethodPost, "/auth/logout-all", models.LogoutAllRequest{RefreshToken: laptop.RefreshToken}, bearer(laptop.AccessToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.LogoutAllResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 2, resp.TokensInvalidated)
	assert.True(t, resp.CurrentDeviceExcluded)

	for _, dead := range []string{phone.RefreshToken, tablet.RefreshToken} {
		w = s.do(http.MethodPost, "/auth/refresh", models.RefreshTokenRequest{RefreshToken: dead}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	exclude := false
	w = s.do(http.MethodPost, "/auth/logout-all", models.LogoutAllRequest{RefreshToken: laptop.RefreshToken, ExcludeCurrent: &exclude}, bearer(laptop.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.TokensInvalidated)
	assert.False(t, resp.CurrentDeviceExcluded)
}

func TestExportSessions(t *testing.T) {
	s := newTestServer(t)
	pair := s.login(t)

	w := s.do(http.MethodGet, "/auth/sessions/export", nil, bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "sessions_user-1_")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sessions")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&auth.RateLimitError{Key: "login_1.2.3.4", RetryAfter: time.Minute}, http.StatusTooManyRequests, "rate_limited"},
		{fmt.Errorf("rotate: %w", auth.ErrTokenReuseDetected), http.StatusUnauthorized, "token_reuse_detected"},
		{auth.ErrRotationLimitExceeded, http.StatusUnauthorized, "rotation_limit_exceeded"},
		{auth.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
		{fmt.Errorf("find: %w: dial tcp", repository.ErrStorageUnavailable), http.StatusServiceUnavailable, "storage_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestStorageFailureHidesDetails(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		RespondError(c, fmt.Errorf("find: %w: password=hunter2", repository.ErrStorageUnavailable))
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
}
