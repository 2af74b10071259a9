package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/service"
)

// лучшие персонажи по уровню и опыту
func (h *Handler) Top(c *gin.Context) {
	limit := service.TopLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	top, err := h.Characters.Top(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}
	if top == nil {
		top = []*domain.Character{}
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}
