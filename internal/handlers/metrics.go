package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BelikanM/cub/internal/database"
	"github.com/BelikanM/cub/internal/logger"
)

// Health reports whether the database answers
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	dbStatus := "ok"
	if err := database.Health(h.db); err != nil {
		logger.Log.Warn("Health check failed", zap.Error(err))
		status, code, dbStatus = "degraded", http.StatusServiceUnavailable, "unreachable"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"database":  dbStatus,
		"service":   "cub",
		"timestamp": time.Now().UTC(),
	})
}

// Metrics serves the Prometheus registry
// GET /metrics
func (h *Handlers) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
