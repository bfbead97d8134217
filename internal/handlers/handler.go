package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edgecam/internal/logger"
	"edgecam/internal/service"
)

// Handler serves the local commissioning API: health and a device status
// snapshot, available while the device is awake.
type Handler struct {
	status *service.StatusService
	log    *logger.Logger
}

func NewHandler(status *service.StatusService, log *logger.Logger) *Handler {
	return &Handler{status: status, log: log}
}

// InitRoutes builds the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	{
		api.GET("/status", h.deviceStatus)
	}

	return router
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) deviceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Snapshot())
}
