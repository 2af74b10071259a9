package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"roleplay_bot/internal/plugin"
	"roleplay_bot/internal/service"
)

// Каталог плагинов с отметкой включенных на сервере
func (h *Handler) ServerPlugins(c *gin.Context) {
	serverID, ok := paramID(c, "id")
	if !ok {
		return
	}

	list, err := h.Servers.Plugins(c.Request.Context(), serverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plugins"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plugins": list})
}

// Переключение плагина, только для администраторов сервера
func (h *Handler) TogglePlugin(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	serverID, ok := paramID(c, "id")
	if !ok {
		return
	}
	name := c.Param("name")

	enabled, err := h.Servers.TogglePlugin(c.Request.Context(), serverID, userID, name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotServerAdmin):
			c.JSON(http.StatusForbidden, gin.H{"error": "admin rights required"})
		case errors.Is(err, plugin.ErrUnknownPlugin):
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown plugin"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle plugin"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"plugin": name, "enabled": enabled})
}
