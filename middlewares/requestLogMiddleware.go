package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rohtashsarraf/jewelbill_backend/config"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
	"github.com/sirupsen/logrus"
)

// RequestLogMiddleware logs failed requests with their correlation id.
func RequestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status < 500 {
			return
		}
		correlationId, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.GetLogger().WithFields(logrus.Fields{
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"status":        status,
			"durationMs":    time.Since(start).Milliseconds(),
			"correlationId": correlationId,
		}).Error("request failed")
	}
}
