package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/sidechain/views/internal/logger"
	"github.com/zfogg/sidechain/views/internal/util"
	"go.uber.org/zap"
)

// Middleware requires a valid "Authorization: Bearer <token>" header and
// stores the requester ID under util.UserIDKey
func Middleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			util.RespondUnauthorized(c, "no token provided")
			return
		}

		claims, err := validator.ValidateToken(strings.TrimSpace(tokenString))
		if err != nil {
			logger.Log.Debug("Rejected bearer token",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			util.RespondUnauthorized(c, "invalid token")
			return
		}

		c.Set(util.UserIDKey, claims.UserID)
		c.Next()
	}
}
