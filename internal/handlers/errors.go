package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-session-service/internal/services/auth"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is checked in order; first errors.Is match wins
var errorTable = []errorMapping{
	{auth.ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limited"},
	{auth.ErrTokenNotFound, http.StatusUnauthorized, "token_not_found"},
	{auth.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
	{auth.ErrTokenReuseDetected, http.StatusUnauthorized, "token_reuse_detected"},
	{auth.ErrRotationLimitExceeded, http.StatusUnauthorized, "rotation_limit_exceeded"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrInvalidAccessToken, http.StatusUnauthorized, "invalid_access_token"},
	{auth.ErrOwnerRequired, http.StatusUnauthorized, "invalid_access_token"},
	{auth.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{auth.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
}

func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// RespondError writes the typed failure body for err
func RespondError(c *gin.Context, err error) {
	status, code := classify(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		// driver details stay in the logs
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(),
			"code":  code,
			"error": err,
		}).Error("Request failed")
		_ = c.Error(err)
		message = http.StatusText(status)
	}

	var rl *auth.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		c.Header("Retry-After", formatSeconds(rl.RetryAfter.Seconds()))
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "invalid_request",
		"message": err.Error(),
	})
}
