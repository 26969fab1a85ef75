package http

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	"github.com/allisson/fieldcrypt/internal/httputil"
)

// AdminTokenMiddleware requires "Authorization: Bearer <token>" to match the configured
// admin token. The comparison runs in constant time.
func AdminTokenMiddleware(adminToken string, logger *slog.Logger) gin.HandlerFunc {
	expected := []byte(adminToken)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("admin authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		token := []byte(authHeader[len(bearerPrefix):])
		if len(expected) == 0 || subtle.ConstantTimeCompare(token, expected) != 1 {
			logger.Debug("admin authentication failed: invalid token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
