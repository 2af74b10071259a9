package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"roleplay_bot/internal/http/handlers"
	"roleplay_bot/internal/service"
)

// Auth проверяет Bearer JWT и кладет id пользователя в контекст
func Auth(j *service.JWT) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		userID, err := j.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(handlers.UserIDKey, userID)
		c.Next()
	}
}
