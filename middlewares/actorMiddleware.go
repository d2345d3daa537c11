package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/rohtashsarraf/jewelbill_backend/utils"
)

// ActorMiddleware copies the authenticated actor identity supplied by the
// fronting auth layer (reverse proxy / session gateway) into the request
// context for audit fields. Authentication itself is not this service's job.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetHeader("X-Auth-User")
		if username != "" {
			ctx := utils.SetUsernameInContext(c.Request.Context(), username)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
