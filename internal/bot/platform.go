package bot

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/plugin"
	"roleplay_bot/internal/service"
)

// лимит Telegram на custom title администратора
const nicknameLimit = 16

var errEmptyMessage = errors.New("message body is empty")

var (
	_ service.Sender          = (*Bot)(nil)
	_ service.Collector       = (*Bot)(nil)
	_ service.MemberDirectory = (*Bot)(nil)
	_ service.NicknameSetter  = (*Bot)(nil)
	_ plugin.CommandSurface   = (*Bot)(nil)
)

func (b *Bot) SendMessage(ctx context.Context, channelID int64, body domain.MessageBody) (*domain.SentMessage, error) {
	text := RenderHTML(body)
	if text == "" {
		return nil, errEmptyMessage
	}

	cfg := tgbotapi.NewMessage(channelID, text)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = previewImage(body) == ""

	sent, err := b.api.Send(cfg)
	if err != nil {
		return nil, err
	}
	return &domain.SentMessage{
		Ref:      domain.MessageRef{ChannelID: channelID, MessageID: int64(sent.MessageID)},
		ServerID: channelID,
		Body:     body.Clone(),
	}, nil
}

func (b *Bot) EditMessage(ctx context.Context, ref domain.MessageRef, body domain.MessageBody) error {
	text := RenderHTML(body)
	if text == "" {
		return errEmptyMessage
	}

	cfg := tgbotapi.NewEditMessageText(ref.ChannelID, int(ref.MessageID), text)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = previewImage(body) == ""

	_, err := b.api.Request(cfg)
	return err
}

func (b *Bot) DeleteMessage(ctx context.Context, ref domain.MessageRef) error {
	_, err := b.api.Request(tgbotapi.NewDeleteMessage(ref.ChannelID, int(ref.MessageID)))
	return err
}

// collector ожидание одного сообщения в чате
type collector struct {
	filter func(*domain.Message) bool
	ch     chan *domain.Message
}

// CollectNextMessage ждет первое подходящее сообщение в чате.
// Пойманное сообщение не попадает в обработку постов.
func (b *Bot) CollectNextMessage(ctx context.Context, channelID int64, filter func(*domain.Message) bool, timeout time.Duration) (*domain.Message, error) {
	c := &collector{filter: filter, ch: make(chan *domain.Message, 1)}

	b.collectMu.Lock()
	b.collectors[channelID] = append(b.collectors[channelID], c)
	b.collectMu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-c.ch:
		return msg, nil
	case <-timer.C:
	case <-ctx.Done():
	}

	b.dropCollector(channelID, c)
	// deliver мог отдать сообщение до снятия ожидания
	select {
	case msg := <-c.ch:
		return msg, nil
	default:
	}
	return nil, ctx.Err()
}

// deliver отдает сообщение первому подходящему ожиданию
func (b *Bot) deliver(msg *domain.Message) bool {
	b.collectMu.Lock()
	defer b.collectMu.Unlock()

	list := b.collectors[msg.ChannelID]
	for i, c := range list {
		if c.filter != nil && !c.filter(msg) {
			continue
		}
		b.collectors[msg.ChannelID] = append(list[:i:i], list[i+1:]...)
		if len(b.collectors[msg.ChannelID]) == 0 {
			delete(b.collectors, msg.ChannelID)
		}
		c.ch <- msg
		return true
	}
	return false
}

func (b *Bot) dropCollector(channelID int64, c *collector) {
	b.collectMu.Lock()
	defer b.collectMu.Unlock()

	list := b.collectors[channelID]
	for i, x := range list {
		if x == c {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(b.collectors, channelID)
		return
	}
	b.collectors[channelID] = list
}

// Member участник группы; nil, если пользователь вышел или исключен.
// В личном чате пользователь считается владельцем.
func (b *Bot) Member(ctx context.Context, serverID, userID int64) (*service.Member, error) {
	if serverID == userID {
		return &service.Member{UserID: userID, IsOwner: true, IsSelf: userID == b.selfID}, nil
	}

	cm, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: serverID, UserID: userID},
	})
	if err != nil {
		return nil, err
	}
	if cm.Status == "left" || cm.Status == "kicked" {
		return nil, nil
	}

	m := &service.Member{
		UserID:   userID,
		Nickname: cm.CustomTitle,
		IsOwner:  cm.IsCreator(),
		IsAdmin:  cm.IsAdministrator(),
		IsSelf:   userID == b.selfID,
	}
	if m.Nickname == "" && cm.User != nil {
		m.Nickname = cm.User.FirstName
	}
	return m, nil
}

// SetNickname ставит custom title; Telegram разрешает это только
// для администраторов, назначенных ботом
func (b *Bot) SetNickname(ctx context.Context, serverID, userID int64, nickname string) error {
	_, err := b.api.Request(tgbotapi.SetChatAdministratorCustomTitle{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: serverID, UserID: userID},
		CustomTitle:      nickname,
	})
	return err
}

func (b *Bot) NicknameLimit() int { return nicknameLimit }

func shardChat(id int64) uint32 {
	u := uint64(id)
	return uint32(u ^ (u >> 32))
}

// RegisterCommands добавляет команды плагина в меню чата
func (b *Bot) RegisterCommands(ctx context.Context, serverID int64, cmds []plugin.Command) error {
	list := b.commands.Upsert(serverID, nil, func(exist bool, current, _ []tgbotapi.BotCommand) []tgbotapi.BotCommand {
		out := append([]tgbotapi.BotCommand(nil), current...)
		for _, c := range cmds {
			if !hasCommand(out, c.Name) {
				out = append(out, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
			}
		}
		return out
	})
	return b.publishCommands(serverID, list)
}

// UnregisterCommands убирает команды плагина из меню чата
func (b *Bot) UnregisterCommands(ctx context.Context, serverID int64, cmds []plugin.Command) error {
	list := b.commands.Upsert(serverID, nil, func(exist bool, current, _ []tgbotapi.BotCommand) []tgbotapi.BotCommand {
		out := make([]tgbotapi.BotCommand, 0, len(current))
		for _, bc := range current {
			if !containsPluginCommand(cmds, bc.Command) {
				out = append(out, bc)
			}
		}
		return out
	})
	return b.publishCommands(serverID, list)
}

func (b *Bot) publishCommands(chatID int64, pluginCommands []tgbotapi.BotCommand) error {
	all := append(baseCommands(), pluginCommands...)
	_, err := b.api.Request(tgbotapi.NewSetMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(chatID), all...))
	return err
}

func hasCommand(list []tgbotapi.BotCommand, name string) bool {
	for _, c := range list {
		if c.Command == name {
			return true
		}
	}
	return false
}

func containsPluginCommand(cmds []plugin.Command, name string) bool {
	for _, c := range cmds {
		if c.Name == name {
			return true
		}
	}
	return false
}
