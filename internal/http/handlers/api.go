package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"roleplay_bot/internal/i18n"
	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/service"
)

// UserIDKey ключ gin.Context, под которым auth middleware кладет пользователя
const UserIDKey = "user_id"

// Handler HTTP API мини-приложения
type Handler struct {
	Characters *service.CharacterService
	Profiles   *service.ProfileService
	Economy    *service.EconomyService
	Servers    *service.ServerService
	JWT        *service.JWT
	BotToken   string
	Now        func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func getUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id != 0
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// Вход через initData Telegram WebApp
func (h *Handler) AuthTelegram(c *gin.Context) {
	var req struct {
		InitData string `json:"init_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	tgUser, err := service.ValidateTelegramInitData(req.InitData, h.BotToken, h.now())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.Characters.User(ctx, tgUser.ID)
	if err != nil {
		logger.Error("failed to load user", "user_id", tgUser.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	token, err := h.JWT.Generate(tgUser.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"user_id":  user.ID,
		"username": tgUser.Username,
		"language": user.PreferredLanguage,
	})
}

// Смена языка текущего пользователя
func (h *Handler) SetLanguage(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Language string `json:"language" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	lang, err := h.Characters.SetLanguage(c.Request.Context(), userID, req.Language)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedLanguage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T(req.Language, i18n.LanguageUnknown)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": lang})
}

// Баланс персонажа на сервере
func (h *Handler) Balance(c *gin.Context) {
	characterID, ok := queryID(c, "character_id")
	if !ok {
		return
	}
	serverID, ok := queryID(c, "server_id")
	if !ok {
		return
	}
	if characterID == 0 || serverID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "character_id and server_id are required"})
		return
	}

	balance, err := h.Economy.Get(c.Request.Context(), characterID, serverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"character_id": characterID, "server_id": serverID, "balance": balance})
}

// Перевод денег между персонажами; отправитель должен принадлежать пользователю
func (h *Handler) Transfer(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		FromCharacterID int64 `json:"from_character_id" binding:"required"`
		ToCharacterID   int64 `json:"to_character_id" binding:"required"`
		ServerID        int64 `json:"server_id" binding:"required"`
		Amount          int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	ctx := c.Request.Context()
	from, err := h.Characters.Get(ctx, req.FromCharacterID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if from == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}

	t, err := h.Economy.Transfer(ctx, service.TransferRequest{
		ActorID:         userID,
		FromCharacterID: req.FromCharacterID,
		ToCharacterID:   req.ToCharacterID,
		ServerID:        req.ServerID,
		Amount:          req.Amount,
		Authorized:      from.OwnerID == userID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if t == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "transfer rejected"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transfer": t})
}
