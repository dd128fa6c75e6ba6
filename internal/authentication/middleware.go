package authentication

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yuanwb/silent-auth-service/internal/user"
	"github.com/yuanwb/silent-auth-service/internal/utils"
)

// ContextIdentityKey is the gin context key under which AuthMiddleware
// stores the authenticated *user.Identity.
const ContextIdentityKey = "identity"

// AuthMiddleware guards routes with the short-lived access token. The token
// is validated by signature and expiry only; no server-side state is
// consulted.
func AuthMiddleware(accessSecret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
			return
		}
		rawToken := parts[1]

		claims, err := utils.ParseAccessToken(rawToken, accessSecret)
		if err != nil {
			logger.Warn("access token parse failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired access token"})
			return
		}
		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			return
		}

		c.Set(ContextIdentityKey, &user.Identity{
			ID:       claims.Subject,
			Username: claims.Username,
		})
		c.Next()
	}
}
