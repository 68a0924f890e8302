// Package httpmw provides gin middleware shared by admin HTTP surfaces.
package httpmw

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// LoggerMiddleware logs each request's method, path, status, latency, and
// client IP at info level via the standard logrus logger.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.WithFields(log.Fields{
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
			"client_ip":  c.ClientIP(),
			"req_method": c.Request.Method,
			"req_uri":    path,
		}).Info("request handled")
	}
}
