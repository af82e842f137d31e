package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/lexpdf/internal/logger"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// Logger returns a Gin middleware that injects a request-scoped logger.
// An incoming X-Request-ID is reused so ids survive proxies.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logger.SetComponent(logger.SetRequestID(c.Request.Context(), requestID), "api")
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, requestID)

		c.Next()

		status := c.Writer.Status()
		entry := logger.With(logger.Fields{
			logger.FieldStatus:     status,
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			logger.FieldSize:       c.Writer.Size(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error(ctx, "%s %s", c.Request.Method, path)
		case status >= http.StatusBadRequest:
			entry.Warn(ctx, "%s %s", c.Request.Method, path)
		default:
			entry.Info(ctx, "%s %s", c.Request.Method, path)
		}
	}
}

// Recovery turns handler panics into 500 responses and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Recovered(c.Request.Context(), r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
