package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/green-session-service/internal/middleware"
	"github.com/onegreenvn/green-session-service/internal/models"
	"github.com/onegreenvn/green-session-service/internal/services/auth"
)

type AuthHandler struct {
	authService *auth.AuthService
}

func NewAuthHandler(authService *auth.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login godoc
// @Summary Login user
// @Description Authenticate with email and password and start a new session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login request"
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), &req, deviceMetadata(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// RefreshToken godoc
// @Summary Rotate refresh token
// @Description Exchange a refresh token for a new access token and a new refresh token. The refresh token may be sent in the body or as a Bearer credential.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshTokenRequest false "Refresh token request"
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshTokenRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), refreshSecret(c, req.RefreshToken), deviceMetadata(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the presented refresh token. Unknown tokens are accepted.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LogoutRequest false "Logout request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.LogoutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), refreshSecret(c, req.RefreshToken)); err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Logged out successfully"})
}

// LogoutAll godoc
// @Summary Logout all sessions
// @Description Revoke every session of the authenticated user, by default keeping the one holding refresh_token
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.LogoutAllRequest false "Logout-all request"
// @Success 200 {object} models.LogoutAllResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	var req models.LogoutAllRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}

	excludeCurrent := true
	if req.ExcludeCurrent != nil {
		excludeCurrent = *req.ExcludeCurrent
	}
	current := req.RefreshToken
	if current == "" {
		current = c.GetHeader(RefreshTokenHeader)
	}

	resp, err := h.authService.LogoutAll(c.Request.Context(), middleware.UserID(c), current, excludeCurrent)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
