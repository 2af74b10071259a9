// Package streak считает серию сообщений и показывает ее в имени участника
package streak

import (
	"context"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/plugin"
	"roleplay_bot/internal/service"
)

const Name = "streak"

type Plugin struct {
	streaks *service.StreakService
}

func New(streaks *service.StreakService) *Plugin {
	return &Plugin{streaks: streaks}
}

func (p *Plugin) Name() string               { return Name }
func (p *Plugin) Description() string        { return "Message streaks shown in member nicknames" }
func (p *Plugin) Commands() []plugin.Command { return nil }

func (p *Plugin) UserMessage(ctx context.Context, msg *domain.Message) error {
	if msg.Author.IsBot {
		return nil
	}
	_, err := p.streaks.Bump(ctx, msg.Author.ID, msg.ServerID)
	return err
}
