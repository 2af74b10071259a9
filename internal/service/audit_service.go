package service

import (
	"context"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/logger"

	"github.com/google/uuid"
)

// обрабатывает логирование аудита
type AuditService struct {
	repo AuditStore
}

func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// создает новую запись в журнале аудита; ошибки только логируются
func (s *AuditService) Log(ctx context.Context, userID, serverID int64, action, category string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	if details == nil {
		details = make(map[string]interface{})
	}
	details["event_id"] = uuid.NewString()

	entry := &domain.AuditLog{
		UserID:   userID,
		ServerID: serverID,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		logger.WithContext(ctx).Error("не удалось создать запись аудита", "error", err, "action", action, "user_id", userID)
	}
}

// логирует начисление или списание
func (s *AuditService) LogBalance(ctx context.Context, actorID, serverID, characterID, amount, balance int64, action string) {
	s.Log(ctx, actorID, serverID, action, domain.AuditCategoryBalance, map[string]interface{}{
		"character_id": characterID,
		"amount":       amount,
		"balance":      balance,
	})
}

// логирует перевод между персонажами
func (s *AuditService) LogTransfer(ctx context.Context, actorID int64, t *domain.Transfer) {
	s.Log(ctx, actorID, t.ServerID, domain.AuditActionTransfer, domain.AuditCategoryBalance, map[string]interface{}{
		"from_character_id": t.FromCharacterID,
		"to_character_id":   t.ToCharacterID,
		"amount":            t.Amount,
		"from_balance":      t.FromBalance,
		"to_balance":        t.ToBalance,
	})
}

func (s *AuditService) LogPluginToggle(ctx context.Context, actorID, serverID int64, name string, enabled bool) {
	action := domain.AuditActionPluginDisabled
	if enabled {
		action = domain.AuditActionPluginEnabled
	}
	s.Log(ctx, actorID, serverID, action, domain.AuditCategoryPlugin, map[string]interface{}{
		"plugin": name,
	})
}

func (s *AuditService) LogCharacter(ctx context.Context, actorID int64, action string, c *domain.Character) {
	s.Log(ctx, actorID, 0, action, domain.AuditCategoryCharacter, map[string]interface{}{
		"character_id": c.ID,
		"name":         c.Name,
	})
}
