package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/service"
)

// Карточка профиля персонажа в том виде, в каком ее видит чат,
// включая поля от плагинов сервера server_id
func (h *Handler) Profile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	serverID, ok := queryID(c, "server_id")
	if !ok {
		return
	}

	var details *domain.MessageBody
	body, err := h.Profiles.ShowProfile(c.Request.Context(), service.ProfileRequest{
		CharacterID: id,
		ViewerID:    userID,
		ServerID:    serverID,
		// отдаем карточку в ответе, в чат ничего не уходит
		Send: func(_ context.Context, body domain.MessageBody) (*domain.SentMessage, error) {
			return &domain.SentMessage{ServerID: serverID, Body: body}, nil
		},
		WhenSent: func(ctx context.Context, _ *domain.SentMessage) error {
			char, err := h.Characters.Get(ctx, id)
			if err != nil || char == nil {
				return err
			}
			user, err := h.Characters.User(ctx, userID)
			if err != nil {
				return err
			}
			if b, ok := service.BuildProfileDetails(char, user.PreferredLanguage); ok {
				details = &b
			}
			return nil
		},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build profile"})
		return
	}
	if body == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": body, "details": details})
}

// Персонажи текущего пользователя
func (h *Handler) MyCharacters(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	chars, err := h.Characters.ListByOwner(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	user, err := h.Characters.User(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}

	if chars == nil {
		chars = []*domain.Character{}
	}
	c.JSON(http.StatusOK, gin.H{
		"characters": chars,
		"current_id": user.CurrentCharacterID,
	})
}

// Создание персонажа
func (h *Handler) CreateCharacter(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req struct {
		Name     string `json:"name" binding:"required"`
		ImageURL string `json:"image_url"`
		service.CharacterProfile
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	char, err := h.Characters.CreateWithProfile(c.Request.Context(), userID, req.Name, req.ImageURL, req.CharacterProfile)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCharacterName) || errors.Is(err, service.ErrInvalidImageURL) ||
			errors.Is(err, service.ErrInvalidProfileField) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"character": char})
}

// Выбор текущего персонажа
func (h *Handler) ChooseCharacter(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	char, err := h.Characters.ChooseCurrent(c.Request.Context(), userID, id)
	if err != nil {
		writeCharacterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": char})
}

// Изменение анкеты своего персонажа
func (h *Handler) UpdateCharacter(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req service.CharacterProfile
	if err := c.ShouldBindJSON(&req); err != nil || req.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	char, err := h.Characters.UpdateProfile(c.Request.Context(), userID, id, req)
	if err != nil {
		writeCharacterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": char})
}

// Снять текущего персонажа
func (h *Handler) ClearCurrent(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	char, err := h.Characters.ClearCurrent(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"character": char})
}

// Удаление своего персонажа
func (h *Handler) DeleteCharacter(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if _, err := h.Characters.Delete(c.Request.Context(), userID, id); err != nil {
		writeCharacterError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func writeCharacterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCharacterNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
	case errors.Is(err, service.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not your character"})
	case errors.Is(err, service.ErrInvalidProfileField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
	}
}
