package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const errInvalidBodyPref = "invalid body: "

// @Summary      Get preferences
// @Tags         preferences
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/preferences [get]
// @Security     BearerAuth
func (h *Handler) getPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Preferences().Values())
}

// @Summary      Update preferences
// @Description  Writes the given keys. "device" and "outdoorModule" select the monitored device and the outdoor reference; null clears them.
// @Tags         preferences
// @Accept       json
// @Produce      json
// @Param        body  body  map[string]interface{}  true  "Keys to write"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/preferences [put]
// @Security     BearerAuth
func (h *Handler) updatePreferences(c *gin.Context) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + "no keys"})
		return
	}
	if err := h.services.UpdatePreferences(c.Request.Context(), body); err != nil {
		code := statusFor(err)
		if code == http.StatusBadRequest {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, code, "failed to update preferences", "preferences_update_failed", err)
		return
	}
	c.JSON(http.StatusOK, h.services.Preferences().Values())
}

// @Summary      Reset preferences
// @Tags         preferences
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/preferences/reset [post]
// @Security     BearerAuth
func (h *Handler) resetPreferences(c *gin.Context) {
	if err := h.services.ResetPreferences(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to reset preferences", "preferences_reset_failed", err)
		return
	}
	c.JSON(http.StatusOK, h.services.Preferences().Values())
}
