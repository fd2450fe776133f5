package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lastdm/ldm-bridge/api/handlers"
	"github.com/lastdm/ldm-bridge/api/middleware"
	"github.com/lastdm/ldm-bridge/internal/app"
	"github.com/lastdm/ldm-bridge/internal/domain"
	"github.com/lastdm/ldm-bridge/pkg/logger"
)

// Services groups what the HTTP API serves
type Services struct {
	Settings   *app.SettingsStore
	History    *app.HistoryService
	Controller *app.InterceptionController
	Monitor    *app.ConnectionMonitor
	Messages   *app.MessageRouter
	Data       *app.DataManager
	LDM        domain.LDMService

	// StatusInterval is the WebSocket status push period
	StatusInterval time.Duration
	Version        string
}

// SetupRouter sets up the HTTP router
func SetupRouter(services Services, logAdapter *logger.LoggerAdapter) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logAdapter))
	router.Use(middleware.Recovery(logAdapter))
	router.Use(middleware.CORS())

	log := logAdapter.General()

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(services.Monitor, services.Version)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(services.Controller, services.Messages, log)
		v1.POST("/events/download-created", downloadHandler.DownloadCreated)
		v1.POST("/messages", downloadHandler.Message)
		v1.POST("/downloads", downloadHandler.SubmitDownload)
		v1.POST("/classify", downloadHandler.Classify)
		v1.POST("/scan", downloadHandler.Scan)
		v1.POST("/grab", downloadHandler.Grab)

		statusHandler := handlers.NewStatusHandler(services.LDM, services.Monitor, services.StatusInterval, log)
		v1.GET("/connection", statusHandler.GetConnection)
		v1.GET("/status", statusHandler.GetStatus)
		v1.GET("/status/ws", statusHandler.HandleWebSocket)

		settingsHandler := handlers.NewSettingsHandler(services.Settings, services.Messages, services.Data)
		v1.GET("/settings", settingsHandler.GetSettings)
		v1.PUT("/settings", settingsHandler.UpdateSettings)
		v1.GET("/settings/export", settingsHandler.ExportSettings)
		v1.POST("/settings/import", settingsHandler.ImportSettings)
		v1.POST("/reset", settingsHandler.ResetAll)

		historyHandler := handlers.NewHistoryHandler(services.History, log)
		v1.GET("/history", historyHandler.ListHistory)
		v1.DELETE("/history", historyHandler.ClearHistory)
		v1.GET("/stats", historyHandler.GetStats)
		v1.DELETE("/stats", historyHandler.ResetStats)

		// Log endpoints
		if logsDir := logAdapter.LogsDir(); logsDir != "" {
			logHandler := handlers.NewLogHandler(logsDir)
			logs := v1.Group("/logs")
			{
				logs.GET("/categories", logHandler.GetCategories)
				logs.GET("/:category", logHandler.GetLogs)
				logs.GET("/:category/search", logHandler.SearchLogs)
				logs.GET("/:category/export", logHandler.ExportLogs)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
