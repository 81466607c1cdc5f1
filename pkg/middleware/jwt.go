package middleware

import (
	"net/http"
	"strings"

	"plaksha/ocr-api/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionCookie is the cookie the session token is stored in
const SessionCookie = "token"

// NewJWTMiddleware accepts the session token from the token cookie or from an
// Authorization: Bearer header, in that order. Nothing downstream runs
// without a valid one
func NewJWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("requestID")

		tokenStr := sessionToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token missing",
				"requestID": requestID,
			})
			return
		}

		claims, err := security.ParseSessionToken(secret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid or expired",
				"requestID": requestID,
			})

			zap.L().Debug("Rejected session token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid or expired",
				"requestID": requestID,
			})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("firstName", claims.FirstName)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if v, err := c.Cookie(SessionCookie); err == nil && v != "" {
		return v
	}

	h := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}

	return ""
}
