package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/green-session-service/internal/middleware"
	"github.com/onegreenvn/green-session-service/internal/models"
	"github.com/onegreenvn/green-session-service/internal/services/auth"
	"github.com/onegreenvn/green-session-service/internal/services/excel"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SessionHandler struct {
	authService  *auth.AuthService
	excelService *excel.Service
}

func NewSessionHandler(authService *auth.AuthService, excelService *excel.Service) *SessionHandler {
	return &SessionHandler{
		authService:  authService,
		excelService: excelService,
	}
}

// ListSessions godoc
// @Summary List active sessions
// @Description List the authenticated user's active sessions, newest first. Send X-Refresh-Token to mark the current one.
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param X-Refresh-Token header string false "Refresh token of the calling device"
// @Success 200 {object} models.SessionListResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /auth/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.authService.ListSessions(c.Request.Context(), middleware.UserID(c), c.GetHeader(RefreshTokenHeader))
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SessionListResponse{Sessions: sessions})
}

// RevokeSession godoc
// @Summary Revoke a session
// @Description End one of the authenticated user's sessions by id
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /auth/sessions/{id} [delete]
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	if err := h.authService.RevokeSession(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session revoked"})
}

// ExportSessions godoc
// @Summary Export active sessions
// @Description Download the authenticated user's active sessions as an Excel workbook
// @Tags sessions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param X-Refresh-Token header string false "Refresh token of the calling device"
// @Success 200 {file} file
// @Failure 401 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /auth/sessions/export [get]
func (h *SessionHandler) ExportSessions(c *gin.Context) {
	owner := middleware.UserID(c)
	sessions, err := h.authService.ListSessions(c.Request.Context(), owner, c.GetHeader(RefreshTokenHeader))
	if err != nil {
		RespondError(c, err)
		return
	}

	buf, err := h.excelService.ExportSessions(sessions)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+excel.Filename(owner, time.Now()))
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
