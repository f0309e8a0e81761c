package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/green-session-service/internal/services/auth"
	"github.com/onegreenvn/green-session-service/internal/services/ratelimit"
)

// ErrorWriter renders a failed request; the handlers package supplies the shared one
type ErrorWriter func(c *gin.Context, err error)

// RateLimit gates a route by client IP under the given action name.
// Rejections are written as *auth.RateLimitError through onLimited.
// A failing limiter backend lets the request through.
func RateLimit(limiter ratelimit.Limiter, action string, rule ratelimit.Rule, onLimited ErrorWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := action + "_" + c.ClientIP()

		allowed, err := limiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"action": action,
				"error":  err,
			}).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if !allowed {
			logrus.WithFields(logrus.Fields{
				"action":    action,
				"client_ip": c.ClientIP(),
			}).Info("Rate limit exceeded")
			onLimited(c, &auth.RateLimitError{Key: key, RetryAfter: rule.Window})
			c.Abort()
			return
		}

		c.Next()
	}
}
