package service

import (
	"context"
	"errors"
	"log/slog"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/plugin"
)

// SendFunc доставляет карточку туда, откуда пришел запрос
type SendFunc func(ctx context.Context, body domain.MessageBody) (*domain.SentMessage, error)

type ProfileRequest struct {
	CharacterID int64
	ViewerID    int64
	ServerID    int64
	Send        SendFunc
	// WhenSent необязательный, вызывается до AfterShowProfile
	WhenSent func(ctx context.Context, panel *domain.SentMessage) error
}

// ProfileService показывает профиль персонажа с хуками плагинов
type ProfileService struct {
	characters *CharacterService
	registry   *plugin.Registry
	dispatcher *plugin.Dispatcher
	log        *slog.Logger
}

func NewProfileService(characters *CharacterService, registry *plugin.Registry, dispatcher *plugin.Dispatcher) *ProfileService {
	return &ProfileService{
		characters: characters,
		registry:   registry,
		dispatcher: dispatcher,
		log:        logger.With("component", "profiles"),
	}
}

// ShowProfile собирает карточку, отдает ее хукам, отправляет и
// возвращает отправленное тело. nil, nil если персонажа нет.
func (s *ProfileService) ShowProfile(ctx context.Context, req ProfileRequest) (*domain.MessageBody, error) {
	if req.Send == nil {
		return nil, errors.New("send func is required")
	}

	char, err := s.characters.Get(ctx, req.CharacterID)
	if err != nil {
		return nil, err
	}
	if char == nil {
		return nil, nil
	}
	viewer, err := s.characters.User(ctx, req.ViewerID)
	if err != nil {
		return nil, err
	}

	ctx = logger.ContextWith(ctx, "server_id", req.ServerID, "user_id", req.ViewerID, "character_id", char.ID)
	log := logger.FromContext(ctx, s.log)

	var plugins []plugin.Plugin
	if req.ServerID != 0 {
		plugins, err = s.registry.Enabled(ctx, req.ServerID)
		if err != nil {
			log.Error("failed to load enabled plugins", "error", err)
			plugins = nil
		}
	}

	ev := &plugin.ProfileEvent{ServerID: req.ServerID, Character: char.Clone(), Viewer: viewer}
	payload := domain.NewPayload(BuildProfileBody(char, viewer.PreferredLanguage))
	s.dispatcher.BeforeShowProfile(ctx, plugins, ev, payload)

	body := payload.Snapshot()
	panel, err := req.Send(ctx, body)
	if err != nil {
		return nil, err
	}

	if req.WhenSent != nil {
		if err := req.WhenSent(ctx, panel); err != nil {
			log.Warn("profile follow-up failed", "error", err)
		}
	}

	ev.Panel = panel
	s.dispatcher.AfterShowProfile(ctx, plugins, ev)

	return &body, nil
}
