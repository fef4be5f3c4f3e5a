package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, OPTIONS"
	corsHeaders = "Content-Type, Accept, Authorization, X-API-Key"
)

// CORS lets embedding pages on the listed origins read the widget config and
// open chat streams. "*" admits any origin; the request origin is echoed
// back with Vary: Origin so shared caches keep per-origin answers apart.
// Preflight requests are answered with 204 whether or not the origin is
// admitted, and an empty list disables cross-origin access.
func CORS(allowOrigins []string) gin.HandlerFunc {
	wildcard := slices.Contains(allowOrigins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if wildcard || (origin != "" && slices.Contains(allowOrigins, origin)) {
			allowOrigin := origin
			if allowOrigin == "" {
				allowOrigin = "*"
			}
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
