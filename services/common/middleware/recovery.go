package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/chat-billing/services/common/errors"
	"go.uber.org/zap"
)

// Recovery turns a panic into a 500 {"error":"webhook_failed"} so Stripe
// redelivers the event.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String(RequestIDKey, c.GetString(RequestIDKey)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": apperrors.ErrWebhookFailed.Message})
	})
}
