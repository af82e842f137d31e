package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
}

// allows reports whether origin may call the API.
func (cfg CORSConfig) allows(origin string) bool {
	if cfg.AllowAllOrigins || len(cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Job results are fetched by browsers, so X-Request-ID and Content-Disposition are exposed.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && !cfg.allows(origin) {
			c.Next()
			return
		}

		h := c.Writer.Header()
		if cfg.AllowAllOrigins {
			// credentials are never allowed together with *
			h.Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, Accept, Origin, X-Request-ID")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
