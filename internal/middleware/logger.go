package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Logger returns a zap-based request logging middleware. Tenant and user are
// logged when the scope middlewares ran before completion.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		clientIP := c.ClientIP()
		method := c.Request.Method

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("client_ip", clientIP),
		}
		if id, ok := c.Get(ContextUserID); ok {
			if uid, ok := id.(int64); ok {
				fields = append(fields, zap.Int64("user_id", uid))
			}
		}
		if id, ok := c.Get(ContextTenantID); ok {
			if tid, ok := id.(int64); ok {
				fields = append(fields, zap.Int64("tenant_id", tid))
			}
		}
		logger.Info("request", fields...)
	}
}
