// Package dnd заменяет пост с выражением броска кубиков результатом броска
package dnd

import (
	"context"
	"strings"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/game"
	"roleplay_bot/internal/i18n"
	"roleplay_bot/internal/plugin"
)

const Name = "dnd"

type Plugin struct {
	intn func(n int) int
}

// New intn может быть nil, тогда используется crypto/rand
func New(intn func(n int) int) *Plugin {
	return &Plugin{intn: intn}
}

func (p *Plugin) Name() string        { return Name }
func (p *Plugin) Description() string { return "Dice rolls like 2d20kh1+3" }

func (p *Plugin) Commands() []plugin.Command {
	return []plugin.Command{
		{Name: "roll", Description: "Roll dice, e.g. /roll 2d6+1", Run: p.rollCommand},
	}
}

func (p *Plugin) roll(lang, who, text string) (string, bool) {
	expr, err := game.ParseDice(text)
	if err != nil {
		return "", false
	}
	r := expr.Roll(p.intn)
	return i18n.T(lang, i18n.Roll, who, r.Total, r.String()), true
}

// BeforePost подменяет карточку поста результатом броска
func (p *Plugin) BeforePost(_ context.Context, ev *plugin.PostEvent, payload *domain.Payload) error {
	lang := domain.LanguageEnglish
	if ev.Author != nil {
		lang = ev.Author.PreferredLanguage
	}
	text, ok := p.roll(lang, ev.Character.Name, strings.TrimSpace(ev.Message.Content))
	if !ok {
		return nil
	}
	payload.Replace(domain.MessageBody{Content: text})
	return nil
}

func (p *Plugin) rollCommand(_ context.Context, inv *plugin.Invocation) (string, error) {
	text, ok := p.roll(inv.Language, inv.UserName, strings.Join(inv.Args, ""))
	if !ok {
		return game.ErrNotDiceExpression.Error(), nil
	}
	return text, nil
}
