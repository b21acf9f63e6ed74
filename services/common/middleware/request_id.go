package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/chat-billing/services/common/logger"
)

const (
	RequestIDKey    = logger.RequestIDKey
	RequestIDHeader = "X-Request-ID"
)

// RequestID propagates X-Request-ID or mints a new one, exposing it on the gin
// context, the request context and the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(RequestIDKey, rid)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), rid))
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}
