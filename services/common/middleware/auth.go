package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/chat-billing/services/common/auth"
	apperrors "github.com/yashrajoria/chat-billing/services/common/errors"
)

const (
	UserContextKey  = "userID"
	EmailContextKey = "email"
)

// JWTAuth requires a valid "Authorization: Bearer <token>" and exposes the
// token's uid and email on the gin context.
func JWTAuth(parser *auth.TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			apperrors.Respond(c, apperrors.ErrUnauthorized)
			return
		}

		claims, err := parser.ParseAndValidateToken(strings.TrimSpace(tokenStr), "")
		if err != nil {
			apperrors.Respond(c, apperrors.Wrap(apperrors.ErrUnauthorized, err))
			return
		}
		uid := auth.UserID(claims)
		if uid == "" {
			apperrors.Respond(c, apperrors.ErrUnauthorized)
			return
		}

		c.Set(UserContextKey, uid)
		c.Set(EmailContextKey, auth.Email(claims))
		c.Next()
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(UserContextKey)
}

func GetEmail(c *gin.Context) string {
	return c.GetString(EmailContextKey)
}
