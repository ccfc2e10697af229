package auth

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Credentials": "true",
	"Access-Control-Allow-Headers":     "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With",
	"Access-Control-Allow-Methods":     "POST, OPTIONS, GET, PUT, DELETE",
	"Access-Control-Expose-Headers":    "Content-Length",
	"Access-Control-Max-Age":           "86400",
}

// CORSMiddleware echoes allowed origins back and answers preflights itself.
// Requests without an Origin header pass through untouched.
func CORSMiddleware(allowedOrigins []string, allowAll bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if !allowAll && !slices.Contains(allowedOrigins, origin) {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			for k, v := range corsHeaders {
				h.Set(k, v)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
