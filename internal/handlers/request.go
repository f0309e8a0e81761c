package handlers

import (
	"errors"
	"io"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/onegreenvn/green-session-service/internal/middleware"
	"github.com/onegreenvn/green-session-service/internal/models"
)

// RefreshTokenHeader marks the caller's own session on session listings
const RefreshTokenHeader = "X-Refresh-Token"

func deviceMetadata(c *gin.Context) models.DeviceMetadata {
	return models.DeviceMetadata{
		UserAgent: c.GetHeader("User-Agent"),
		IPAddress: c.ClientIP(),
	}
}

// bindOptionalJSON binds the body when one was sent
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// refreshSecret prefers the body value and falls back to the bearer header
func refreshSecret(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	token, _ := middleware.BearerToken(c)
	return token
}

func formatSeconds(s float64) string {
	return strconv.Itoa(int(math.Ceil(s)))
}
