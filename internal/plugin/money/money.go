// Package money плагин экономики: баланс в профиле и команды перевода
package money

import (
	"context"
	"errors"
	"strconv"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/i18n"
	"roleplay_bot/internal/plugin"
	"roleplay_bot/internal/service"
)

const Name = "money"

type Plugin struct {
	economy    *service.EconomyService
	characters *service.CharacterService
}

func New(economy *service.EconomyService, characters *service.CharacterService) *Plugin {
	return &Plugin{economy: economy, characters: characters}
}

func (p *Plugin) Name() string        { return Name }
func (p *Plugin) Description() string { return "Server currency for characters" }

func (p *Plugin) Commands() []plugin.Command {
	return []plugin.Command{
		{Name: "add_money", Description: "Give money to a user's character (admins)", Run: p.addMoney},
		{Name: "remove_money", Description: "Take money from a user's character (admins)", Run: p.removeMoney},
		{Name: "give_money", Description: "Transfer money to another user's character", Run: p.giveMoney},
	}
}

// BeforeShowProfile дописывает баланс персонажа на этом сервере
func (p *Plugin) BeforeShowProfile(ctx context.Context, ev *plugin.ProfileEvent, payload *domain.Payload) error {
	if ev.ServerID == 0 {
		return nil
	}
	balance, err := p.economy.Get(ctx, ev.Character.ID, ev.ServerID)
	if err != nil {
		return err
	}

	field := domain.EmbedField{
		Name:   i18n.T(ev.Viewer.PreferredLanguage, i18n.FieldMoney),
		Value:  strconv.FormatInt(balance, 10),
		Inline: true,
	}
	payload.Edit(func(b *domain.MessageBody) {
		if len(b.Embeds) == 0 {
			b.Embeds = append(b.Embeds, domain.Embed{})
		}
		b.Embeds[0].Fields = append(b.Embeds[0].Fields, field)
	})
	return nil
}

// amount последний аргумент команды
func amount(inv *plugin.Invocation) (int64, bool) {
	if len(inv.Args) == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(inv.Args[len(inv.Args)-1], 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func (p *Plugin) target(ctx context.Context, inv *plugin.Invocation) (*domain.Character, error) {
	if inv.TargetUserID == 0 {
		return nil, nil
	}
	c, _, err := p.characters.Current(ctx, inv.TargetUserID)
	return c, err
}

// adjust общая часть add_money и remove_money
func (p *Plugin) adjust(ctx context.Context, inv *plugin.Invocation, remove bool) (string, error) {
	if !inv.IsAdmin {
		return i18n.T(inv.Language, i18n.NoPermission), nil
	}
	n, ok := amount(inv)
	if !ok {
		return i18n.T(inv.Language, i18n.InvalidAmount), nil
	}
	c, err := p.target(ctx, inv)
	if err != nil {
		return "", err
	}
	if c == nil {
		return i18n.T(inv.Language, i18n.UserNoCharacter), nil
	}

	if remove {
		if _, err := p.economy.Remove(ctx, inv.UserID, c.ID, inv.ServerID, n); err != nil {
			return "", err
		}
		return i18n.T(inv.Language, i18n.MoneyRemoved, n, c.Name), nil
	}
	if _, err := p.economy.Add(ctx, inv.UserID, c.ID, inv.ServerID, n); err != nil {
		return "", err
	}
	return i18n.T(inv.Language, i18n.MoneyAdded, n, c.Name), nil
}

func (p *Plugin) addMoney(ctx context.Context, inv *plugin.Invocation) (string, error) {
	return p.adjust(ctx, inv, false)
}

func (p *Plugin) removeMoney(ctx context.Context, inv *plugin.Invocation) (string, error) {
	return p.adjust(ctx, inv, true)
}

func (p *Plugin) giveMoney(ctx context.Context, inv *plugin.Invocation) (string, error) {
	n, ok := amount(inv)
	if !ok {
		return i18n.T(inv.Language, i18n.InvalidAmount), nil
	}

	from, _, err := p.characters.Current(ctx, inv.UserID)
	if err != nil {
		return "", err
	}
	to, err := p.target(ctx, inv)
	if err != nil {
		return "", err
	}
	if from == nil || to == nil {
		return i18n.T(inv.Language, i18n.UserNoCharacter), nil
	}

	t, err := p.economy.Transfer(ctx, service.TransferRequest{
		ActorID:         inv.UserID,
		FromCharacterID: from.ID,
		ToCharacterID:   to.ID,
		ServerID:        inv.ServerID,
		Amount:          n,
		Authorized:      from.OwnerID == inv.UserID,
	})
	if errors.Is(err, service.ErrInvalidAmount) {
		return i18n.T(inv.Language, i18n.InvalidAmount), nil
	}
	if err != nil {
		return "", err
	}
	if t == nil {
		return i18n.T(inv.Language, i18n.MoneyNotGiven), nil
	}
	return i18n.T(inv.Language, i18n.MoneyGiven, from.Name, n, to.Name), nil
}
