package service

import (
	"context"
	"errors"
	"log/slog"

	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/plugin"
)

var ErrNotServerAdmin = errors.New("нужны права администратора сервера")

type PluginStatus struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

type PluginToggledEvent struct {
	ServerID int64  `json:"server_id"`
	UserID   int64  `json:"user_id"`
	Plugin   string `json:"plugin"`
	Enabled  bool   `json:"enabled"`
}

// ServerService настройки сервера: плагины
type ServerService struct {
	registry *plugin.Registry
	members  MemberDirectory
	audit    *AuditService
	events   Publisher
	log      *slog.Logger
}

func NewServerService(registry *plugin.Registry, members MemberDirectory, audit *AuditService, events Publisher) *ServerService {
	if events == nil {
		events = NopPublisher()
	}
	return &ServerService{
		registry: registry,
		members:  members,
		audit:    audit,
		events:   events,
		log:      logger.With("component", "servers"),
	}
}

// IsAdmin владелец или администратор сервера
func (s *ServerService) IsAdmin(ctx context.Context, serverID, userID int64) (bool, error) {
	if s.members == nil {
		return false, nil
	}
	m, err := s.members.Member(ctx, serverID, userID)
	if err != nil {
		return false, err
	}
	return m != nil && (m.IsOwner || m.IsAdmin), nil
}

// TogglePlugin переключает плагин от имени userID и возвращает новое состояние
func (s *ServerService) TogglePlugin(ctx context.Context, serverID, userID int64, name string) (bool, error) {
	ok, err := s.IsAdmin(ctx, serverID, userID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotServerAdmin
	}

	enabled, err := s.registry.Toggle(ctx, serverID, name)
	if err != nil {
		return false, err
	}

	s.log.Info("plugin toggled", "server_id", serverID, "user_id", userID, "plugin", name, "enabled", enabled)
	s.audit.LogPluginToggle(ctx, userID, serverID, name, enabled)
	ev := PluginToggledEvent{ServerID: serverID, UserID: userID, Plugin: name, Enabled: enabled}
	if err := s.events.Publish(ctx, SubjectPluginToggled, ev); err != nil {
		s.log.Warn("failed to publish plugin toggle", "error", err)
	}
	return enabled, nil
}

// Plugins каталог с отметкой включенных на сервере
func (s *ServerService) Plugins(ctx context.Context, serverID int64) ([]PluginStatus, error) {
	catalog := s.registry.Catalog()
	out := make([]PluginStatus, 0, len(catalog))
	for _, p := range catalog {
		enabled, err := s.registry.IsEnabled(ctx, serverID, p.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, PluginStatus{Name: p.Name(), Description: p.Description(), Enabled: enabled})
	}
	return out, nil
}
