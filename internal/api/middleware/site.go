package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askstream/internal/domain"
	"go.uber.org/zap"
)

// Auth returns an API key authentication middleware
func Auth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip auth if no API key configured
		if apiKey == "" {
			c.Next()
			return
		}

		key := c.GetHeader("X-API-Key")
		if key == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if key != apiKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, domain.ErrorBody{Message: "unauthorized"})
			return
		}

		c.Next()
	}
}

// SiteLookup reports whether a widget token is registered
type SiteLookup func(token string) (bool, error)

// SiteToken rejects requests whose :token path parameter names no site
func SiteToken(lookup SiteLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		ok, err := lookup(token)
		if err != nil {
			logger.Error("Failed to look up site", zap.String("token", token), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, domain.ErrorBody{Message: "internal error"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, domain.ErrorBody{Message: "site not found"})
			return
		}
		c.Next()
	}
}
