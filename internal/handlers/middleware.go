package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// apiKeyMiddleware checks the bearer API key when one is configured.
func (h *Handler) apiKeyMiddleware(c *gin.Context) {
	authz := h.services.Authorization
	if authz == nil || !authz.Enabled() {
		c.Next()
		return
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	if err := authz.CheckAPIKey(parts[1]); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid api key",
		})
		return
	}
	c.Next()
}
