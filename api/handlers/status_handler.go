package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/app"
	"github.com/lastdm/ldm-bridge/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // extension pages have their own origin
	},
}

// StatusHandler reports LDM connection and transfer status
type StatusHandler struct {
	ldm      domain.LDMService
	monitor  *app.ConnectionMonitor
	interval time.Duration
	logger   *zap.Logger
}

// NewStatusHandler creates a new status handler. interval is the WebSocket
// push period.
func NewStatusHandler(ldm domain.LDMService, monitor *app.ConnectionMonitor, interval time.Duration, logger *zap.Logger) *StatusHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &StatusHandler{
		ldm:      ldm,
		monitor:  monitor,
		interval: interval,
		logger:   logger,
	}
}

// GetStatus handles GET /api/v1/status. An unreachable LDM yields a zeroed report.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.ldm.StatusOrEmpty(c.Request.Context()))
}

// GetConnection handles GET /api/v1/connection
func (h *StatusHandler) GetConnection(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Check(c.Request.Context()))
}

// HandleWebSocket handles GET /api/v1/status/ws, pushing a status report every
// interval until the client goes away
func (h *StatusHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("Status client connected", zap.String("remote_addr", c.Request.RemoteAddr))
	defer h.logger.Debug("Status client disconnected", zap.String("remote_addr", c.Request.RemoteAddr))

	ctx := c.Request.Context()

	// Read messages from client (for close/pong)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	push := func() bool {
		if err := conn.WriteJSON(h.ldm.StatusOrEmpty(ctx)); err != nil {
			h.logger.Debug("Failed to push status", zap.Error(err))
			return false
		}
		return true
	}

	if !push() {
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !push() {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}
