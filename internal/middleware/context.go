package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/constants"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
)

// ContextMiddleware seeds the request context with the tracking values
// the context logger reads and bounds the request with timeout.
func ContextMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderXRequestID)
		ctx := ctxutil.NewRequestContext(c.Request.Context(), c.Request, requestID, c.ClientIP())

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		c.Header(constants.HeaderXRequestID, ctxutil.GetRequestID(ctx))
		c.Request = c.Request.WithContext(ctx)

		logger.DebugWithContext(ctx, "Request started").
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Log()

		c.Next()

		logger.DebugWithContext(c.Request.Context(), "Request completed").
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Int("status_code", c.Writer.Status()).
			Duration(ctxutil.GetDuration(ctx)).
			Log()
	}
}
