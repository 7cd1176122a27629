package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timehacker/api/pkg/health"
	"github.com/timehacker/api/pkg/logger"
	"go.uber.org/zap"
)

type HealthHandler struct {
	monitor *health.Monitor
	name    string
	version string
}

func NewHealthHandler(monitor *health.Monitor, name, version string) *HealthHandler {
	return &HealthHandler{monitor: monitor, name: name, version: version}
}

// HealthCheck reports every dependency; 503 once a critical one fails
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	report := h.monitor.Report(c.Request.Context())
	report.Version = h.version

	statusCode := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	logger.GetLogger().Debug("Health check performed",
		zap.String("overall_status", report.Status.String()),
		zap.Int("status_code", statusCode),
	)

	c.JSON(statusCode, report)
}

// BasicHealth answers load balancers without touching dependencies
func (h *HealthHandler) BasicHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   h.name + " is running",
		"version":   h.version,
		"timestamp": time.Now().UTC(),
	})
}
