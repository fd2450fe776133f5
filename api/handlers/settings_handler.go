package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/lastdm/ldm-bridge/internal/app"
	"github.com/lastdm/ldm-bridge/internal/domain"
)

// SettingsHandler handles settings requests
type SettingsHandler struct {
	store  *app.SettingsStore
	router *app.MessageRouter
	data   *app.DataManager
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(store *app.SettingsStore, router *app.MessageRouter, data *app.DataManager) *SettingsHandler {
	return &SettingsHandler{
		store:  store,
		router: router,
		data:   data,
	}
}

// GetSettings handles GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Load())
}

// UpdateSettings handles PUT /api/v1/settings. The body may carry any
// subset of the settings fields.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "settings must be a JSON object"})
		return
	}

	reply := h.router.Dispatch(c.Request.Context(), domain.Message{
		Action:   domain.ActionUpdateSettings,
		Settings: body,
	})
	if !reply.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": reply.Error})
		return
	}

	c.JSON(http.StatusOK, reply.Settings)
}

// ExportSettings handles GET /api/v1/settings/export
func (h *SettingsHandler) ExportSettings(c *gin.Context) {
	now := time.Now()
	filename := fmt.Sprintf("ldm-settings-%s.json", now.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.IndentedJSON(http.StatusOK, h.store.Export(now))
}

// ImportSettings handles POST /api/v1/settings/import
func (h *SettingsHandler) ImportSettings(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings, err := h.store.Import(body)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, app.ErrInvalidSettingsFile) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// ResetAll handles POST /api/v1/reset
func (h *SettingsHandler) ResetAll(c *gin.Context) {
	settings, err := h.data.ResetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All data reset", "settings": settings})
}
