package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Begin login
// @Description  Returns the Netatmo authorization page URL. With redirect=1 the client is redirected there.
// @Tags         auth
// @Produce      json
// @Param        redirect  query  string  false  "Redirect instead of returning JSON"  Enums(1)
// @Success      200  {object}  map[string]string  "url"
// @Success      302
// @Failure      500  {object}  map[string]string
// @Router       /auth/login [get]
func (h *Handler) login(c *gin.Context) {
	url, err := h.services.BeginLogin()
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to start login", "auth_login_failed", err)
		return
	}
	if c.Query("redirect") == "1" {
		c.Redirect(http.StatusFound, url)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// @Summary      OAuth callback
// @Tags         auth
// @Produce      json
// @Param        code   query  string  true  "Authorization code"
// @Param        state  query  string  true  "State issued by /auth/login"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /auth/callback [get]
func (h *Handler) callback(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		if h.log != nil {
			h.log.Infow("auth_callback_denied", "error", e)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization denied: " + e})
		return
	}
	err := h.services.CompleteLogin(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		h.logAndJSONError(c, statusFor(err), err.Error(), "auth_callback_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "authorized"})
}

// @Summary      Logout
// @Description  Drops the stored tokens. The device selection is kept.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /auth/logout [post]
// @Security     BearerAuth
func (h *Handler) logout(c *gin.Context) {
	if err := h.services.Logout(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to logout", "auth_logout_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
