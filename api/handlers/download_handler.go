package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lastdm/ldm-bridge/internal/app"
	"github.com/lastdm/ldm-bridge/internal/domain"
)

// DownloadHandler handles interception and submission requests
type DownloadHandler struct {
	controller *app.InterceptionController
	router     *app.MessageRouter
	logger     *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(controller *app.InterceptionController, router *app.MessageRouter, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		controller: controller,
		router:     router,
		logger:     logger,
	}
}

// SubmitRequest represents a request to send a URL to LDM
type SubmitRequest struct {
	URL     string        `json:"url" binding:"required"`
	Referer string        `json:"referer,omitempty"`
	Source  domain.Source `json:"source,omitempty"`
}

// ClassifyRequest represents a dry-run classification request
type ClassifyRequest struct {
	URL      string `json:"url" binding:"required"`
	FileSize int64  `json:"fileSize,omitempty"`
}

// PageRequest names a page to scan
type PageRequest struct {
	PageURL   string `json:"pageUrl" binding:"required"`
	MediaOnly bool   `json:"mediaOnly,omitempty"`
}

// DownloadCreated handles POST /api/v1/events/download-created
func (h *DownloadHandler) DownloadCreated(c *gin.Context) {
	var ev domain.DownloadEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// the browser only reports freshly created downloads
	if ev.State == "" {
		ev.State = domain.DownloadInProgress
	}

	host := app.NewDirectiveHost(ev.ActiveTabURL)
	outcome := h.controller.HandleDownloadCreated(c.Request.Context(), host, ev)

	// the shim acts only on directives recorded for this download
	outcome.Cancel = slices.Contains(host.Cancelled(), ev.ID)
	outcome.Erase = slices.Contains(host.Erased(), ev.ID)

	if outcome.Submitted() {
		h.logger.Debug("Download event submitted to LDM",
			zap.String("id", ev.ID),
			zap.String("action", string(outcome.Action)))
	}
	c.JSON(http.StatusOK, outcome)
}

// SubmitDownload handles POST /api/v1/downloads
func (h *DownloadHandler) SubmitDownload(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply := h.router.Dispatch(c.Request.Context(), domain.Message{
		Action:  domain.ActionDownloadURL,
		URL:     req.URL,
		Referer: req.Referer,
		Source:  req.Source,
	})
	if !reply.Success {
		c.JSON(http.StatusBadGateway, reply)
		return
	}

	c.JSON(http.StatusOK, reply)
}

// Classify handles POST /api/v1/classify
func (h *DownloadHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.controller.Classify(req.URL, req.FileSize))
}

// Scan handles POST /api/v1/scan
func (h *DownloadHandler) Scan(c *gin.Context) {
	h.page(c, domain.ActionScanVideos)
}

// Grab handles POST /api/v1/grab
func (h *DownloadHandler) Grab(c *gin.Context) {
	h.page(c, domain.ActionGrabLinks)
}

func (h *DownloadHandler) page(c *gin.Context, action domain.Action) {
	var req PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply := h.router.Dispatch(c.Request.Context(), domain.Message{
		Action:    action,
		PageURL:   req.PageURL,
		MediaOnly: req.MediaOnly,
	})
	if !reply.Success {
		h.logger.Warn("Page request failed",
			zap.String("action", string(action)),
			zap.String("page_url", req.PageURL),
			zap.String("error", reply.Error))
		c.JSON(http.StatusBadGateway, reply)
		return
	}

	c.JSON(http.StatusOK, reply)
}

// Message handles POST /api/v1/messages. The reply always carries the
// outcome, so failures are still 200.
func (h *DownloadHandler) Message(c *gin.Context) {
	var msg domain.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, domain.Reply{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.router.Dispatch(c.Request.Context(), msg))
}
