package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-usage-monitor/internal/service"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports ready once a monitor cycle has completed.
func (h *MetricsHandler) Ready(c *gin.Context) {
	last := h.metrics.LastSuccessfulCycle()
	if last.IsZero() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "waiting for first cycle"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "last_cycle": last.UTC().Format(time.RFC3339)})
}
