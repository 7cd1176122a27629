package middleware

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/internal/constants"
	apperrors "github.com/timehacker/api/internal/errors"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
	"go.uber.org/zap"
)

const slowRequestThreshold = 2 * time.Second

// LoggingMiddleware routes gin's access log through zap
func LoggingMiddleware() gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			logger.LogRequest(
				param.Method,
				param.Path,
				param.StatusCode,
				param.Latency.Milliseconds(),
				param.ClientIP,
				param.Request.UserAgent(),
			)

			if param.ErrorMessage != "" {
				logger.GetLogger().Error("Request error",
					zap.String("error", param.ErrorMessage),
					zap.String("method", param.Method),
					zap.String("path", param.Path),
					zap.Int("status_code", param.StatusCode),
				)
			}
			return ""
		},
		Output: io.Discard,
	})
}

// RequestResponseMiddleware adds request id and user id to failed or slow
// requests; LoggingMiddleware already has the plain access line. Bodies
// are never logged.
func RequestResponseMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("request_id", ctxutil.GetRequestID(c.Request.Context())),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.Int("status_code", status),
			zap.Duration("latency", latency),
			zap.Int("response_size", c.Writer.Size()),
		}
		if userID := ctxutil.GetUserID(c.Request.Context()); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.GetLogger().Error("Server error", fields...)
		case status >= http.StatusBadRequest:
			logger.GetLogger().Warn("Client error", fields...)
		case latency > slowRequestThreshold:
			logger.GetLogger().Warn("Slow request", fields...)
		default:
			logger.GetLogger().Debug("Request completed", fields...)
		}
	}
}

func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.LogPanic(recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody(apperrors.ErrInternal))
	})
}

// credentialRoutes maps the path suffix of every route that accepts a
// password or a token in its body to the action name used in audit logs.
var credentialRoutes = map[string]string{
	"/token":           "login_attempt",
	"/register":        "register_attempt",
	"/refresh":         "refresh_attempt",
	"/forgot-password": "reset_request",
	"/reset-password":  "reset_confirm",
}

// SecurityLoggingMiddleware flags scanner user agents and records every
// credential-bearing request together with its outcome.
func SecurityLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		userAgent := c.GetHeader(constants.HeaderUserAgent)

		if isSuspiciousUserAgent(userAgent) {
			logger.GetLogger().Warn("Suspicious user agent detected",
				zap.String("client_ip", clientIP),
				zap.String("user_agent", userAgent),
				zap.String("path", c.Request.URL.Path),
			)
		}

		c.Next()

		if c.Request.Method != http.MethodPost {
			return
		}
		action, ok := credentialRoutes[c.Request.URL.Path[strings.LastIndex(c.Request.URL.Path, "/"):]]
		if !ok {
			return
		}

		status := c.Writer.Status()
		logger.LogAuth(ctxutil.GetUserID(c.Request.Context()), action, status < http.StatusBadRequest,
			zap.String("client_ip", clientIP),
			zap.Int("status_code", status),
		)
	}
}

func isSuspiciousUserAgent(userAgent string) bool {
	suspiciousPatterns := []string{
		"sqlmap", "nikto", "nmap", "masscan", "burp", "scanner",
	}

	ua := strings.ToLower(userAgent)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
