package handlers

import (
	"errors"
	"net/http"

	"co2_monitor/internal/logger"
	"co2_monitor/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	metrics  http.Handler
}

// NewHandler constructs a new HTTP handler with dependencies. A nil metrics
// handler leaves /metrics unregistered.
func NewHandler(services *service.Service, log *logger.Logger, metrics http.Handler) *Handler {
	return &Handler{services: services, log: log, metrics: metrics}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Status stream (HTTP upgrade) on the same port
	router.GET("/ws", h.apiKeyMiddleware, h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.GET("/login", h.login)
		auth.GET("/callback", h.callback)
		auth.POST("/logout", h.apiKeyMiddleware, h.logout)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.apiKeyMiddleware)
	{
		h.registerStatusRoutes(api)
		h.registerDeviceRoutes(api)
		h.registerPreferenceRoutes(api)
		h.registerNotificationRoutes(api)
	}
}

func (h *Handler) registerStatusRoutes(api *gin.RouterGroup) {
	api.GET("/status", h.getStatus)
	api.GET("/badge", h.getBadge)
	api.GET("/theme", h.getTheme)
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	devices := api.Group("/devices")
	{
		devices.GET("", h.listDevices)
		devices.GET("/selected", h.selectedDevice)
	}
}

func (h *Handler) registerPreferenceRoutes(api *gin.RouterGroup) {
	prefs := api.Group("/preferences")
	{
		prefs.GET("", h.getPreferences)
		// Body example: {"ppmOnBadge":true,"boundaries":{"yellow":800,"orange":1000,"red":1500}}
		prefs.PUT("", h.updatePreferences)
		prefs.POST("/reset", h.resetPreferences)
	}
}

func (h *Handler) registerNotificationRoutes(api *gin.RouterGroup) {
	api.GET("/notifications", h.listNotifications)
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// statusFor maps agent errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidPreferences),
		errors.Is(err, service.ErrInvalidLoginState),
		errors.Is(err, service.ErrInvalidTimeRange):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotAuthorized),
		errors.Is(err, service.ErrAuthRejected):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrTransientServer):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
