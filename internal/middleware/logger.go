package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// quietPaths are polled by health checks and scrapers and never logged
var quietPaths = []string{"/health", "/metrics"}

// Logger returns a middleware that logs failed requests using logrus.
// basePath is the prefix the quiet endpoints are mounted under.
func Logger(basePath string) gin.HandlerFunc {
	quiet := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		quiet[basePath+p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		if quiet[path] {
			return
		}

		status := c.Writer.Status()
		if status < 400 {
			return
		}
		if query != "" {
			path = path + "?" + query
		}

		entry := logrus.WithFields(logrus.Fields{
			"status":    status,
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
			"method":    c.Request.Method,
			"path":      path,
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		if status >= 500 {
			entry.Error("Server error")
		} else {
			entry.Warn("Client error")
		}
	}
}
