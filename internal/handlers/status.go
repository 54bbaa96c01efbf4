package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const statusOK = "ok"

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Current status
// @Description  Icon, accent colours and title for the selected device, plus badge and theme.
// @Tags         status
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Snapshot())
}

// @Summary      Badge overlay
// @Tags         status
// @Produce      json
// @Success      200  {object}  models.BadgeSpec
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/badge [get]
// @Security     BearerAuth
func (h *Handler) getBadge(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.BadgeSpec())
}

// @Summary      Accent theme
// @Tags         status
// @Produce      json
// @Success      200  {object}  models.ThemeSpec
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/theme [get]
// @Security     BearerAuth
func (h *Handler) getTheme(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Theme())
}

// @Summary      Selectable devices
// @Description  Empty lists while logged out.
// @Tags         devices
// @Produce      json
// @Success      200  {object}  models.SelectableDevices
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/devices [get]
// @Security     BearerAuth
func (h *Handler) listDevices(c *gin.Context) {
	list, err := h.services.SelectableDevices(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, statusFor(err), "failed to list devices", "devices_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary      Selected device
// @Tags         devices
// @Produce      json
// @Success      200  {object}  models.Device
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/devices/selected [get]
// @Security     BearerAuth
func (h *Handler) selectedDevice(c *gin.Context) {
	d, ok := h.services.SelectedDevice()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no device selected"})
		return
	}
	c.JSON(http.StatusOK, d)
}
