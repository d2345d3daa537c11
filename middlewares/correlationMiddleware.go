package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
)

const correlationHeader = "X-Correlation-Id"

// CorrelationMiddleware threads a correlation id from the request header
// (or a fresh uuid) through the request context and response.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.GetHeader(correlationHeader)
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)
		c.Header(correlationHeader, correlationId)
		c.Next()
	}
}
