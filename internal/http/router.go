// Package httpserver собирает HTTP API мини-приложения: маршруты,
// авторизацию, лимиты и проверки здоровья.
package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"

	"roleplay_bot/internal/http/handlers"
	"roleplay_bot/internal/http/middleware"
	"roleplay_bot/internal/service"
)

type Deps struct {
	Handler *handlers.Handler
	JWT     *service.JWT
	Limiter *middleware.RateLimiter
	Health  healthcheck.Handler // nil - без /live и /ready
}

// RegisterRoutes вешает API на r
func RegisterRoutes(r *gin.Engine, d Deps) {
	if d.Health != nil {
		r.GET("/live", gin.WrapF(d.Health.LiveEndpoint))
		r.GET("/ready", gin.WrapF(d.Health.ReadyEndpoint))
	}

	h := d.Handler
	api := r.Group("/api")

	// открытые маршруты считаются по IP, закрытые по пользователю
	public := api.Group("")
	auth := api.Group("")
	auth.Use(middleware.Auth(d.JWT))
	if d.Limiter != nil {
		public.Use(d.Limiter.Middleware())
		auth.Use(d.Limiter.Middleware())
	}

	public.POST("/auth/telegram", h.AuthTelegram)
	public.GET("/top", h.Top)
	public.GET("/servers/:id/plugins", h.ServerPlugins)

	auth.GET("/me/characters", h.MyCharacters)
	auth.POST("/characters", h.CreateCharacter)
	auth.POST("/characters/:id/choose", h.ChooseCharacter)
	auth.PATCH("/characters/:id", h.UpdateCharacter)
	auth.DELETE("/characters/:id", h.DeleteCharacter)
	auth.DELETE("/me/current", h.ClearCurrent)
	auth.GET("/characters/:id/profile", h.Profile)
	auth.POST("/me/language", h.SetLanguage)

	auth.GET("/balance", h.Balance)
	auth.POST("/transfer", h.Transfer)

	auth.POST("/servers/:id/plugins/:name/toggle", h.TogglePlugin)
}
