package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexusgateway/mcp-gateway/internal/errorsx"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
)

// CSRFProtect enforces the double-submit cookie pattern for
// browser-origin POSTs per spec §4.2: the X-CSRF-Token header must be
// present and equal the csrf_token cookie value. Non-browser callers
// (service-to-service, bearer-only) that send no Origin header are
// exempt, matching the teacher's CSRF middleware's same-carve-out.
func CSRFProtect() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Origin") == "" {
			c.Next()
			return
		}

		cookie, err := c.Cookie(csrfCookieName)
		if err != nil || cookie == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errorsx.Forbidden("missing csrf cookie").Message})
			return
		}

		header := c.GetHeader(csrfHeaderName)
		if header == "" || header != cookie {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errorsx.Forbidden("csrf token mismatch").Message})
			return
		}

		c.Next()
	}
}
