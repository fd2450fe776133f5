package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lastdm/ldm-bridge/internal/app"
	"github.com/lastdm/ldm-bridge/internal/domain"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	monitor *app.ConnectionMonitor
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(monitor *app.ConnectionMonitor, version string) *HealthHandler {
	return &HealthHandler{
		monitor: monitor,
		version: version,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	LDM     domain.ConnectionState `json:"ldm"`
	Monitor struct {
		Running bool `json:"running"`
	} `json:"monitor"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: h.version,
		LDM:     h.monitor.State(),
	}
	response.Monitor.Running = h.monitor.IsRunning()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.monitor.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "connection monitor not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
