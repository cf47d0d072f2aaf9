package gateway

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ctxKeyRequestID = "request_id"

// requestID assigns every request a fresh id. A caller-supplied id is kept so
// upstream systems can correlate across hops.
func (g *Gateway) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Next()
	}
}

// logRequests emits one structured event per request.
func (g *Gateway) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		g.log.Info("request",
			zap.String("request_id", c.GetString(ctxKeyRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
