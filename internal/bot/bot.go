package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	cmap "github.com/orcaman/concurrent-map/v2"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/plugin"
	"roleplay_bot/internal/service"
)

// методы *tgbotapi.BotAPI, которыми пользуется бот
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handlers сервисы, которым бот отдает события; подключаются после создания
type Handlers struct {
	Posts      *service.PostService
	Profiles   *service.ProfileService
	Characters *service.CharacterService
	Servers    *service.ServerService
	Editor     *service.PostEditor
	Registry   *plugin.Registry
}

// Bot адаптер Telegram: группа это сервер и канал одновременно
type Bot struct {
	api    botAPI
	selfID int64
	h      Handlers

	stopCh chan struct{}
	wg     sync.WaitGroup
	log    *slog.Logger

	collectMu  sync.Mutex
	collectors map[int64][]*collector

	// chatID -> команды плагинов, зарегистрированные в чате
	commands cmap.ConcurrentMap[int64, []tgbotapi.BotCommand]
}

// NewBot авторизуется в Telegram
func NewBot(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newBot(api, api.Self.ID)
	b.log.Info("bot authorized", "username", api.Self.UserName)
	return b, nil
}

func newBot(api botAPI, selfID int64) *Bot {
	return &Bot{
		api:        api,
		selfID:     selfID,
		stopCh:     make(chan struct{}),
		log:        logger.With("component", "telegram_bot"),
		collectors: make(map[int64][]*collector),
		commands:   cmap.NewWithCustomShardingFunction[int64, []tgbotapi.BotCommand](shardChat),
	}
}

// Attach подключает обработчики; вызывать до Start
func (b *Bot) Attach(h Handlers) {
	b.h = h
}

// Start запускает прослушивание обновлений, блокируется до Stop
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}

			msg := toDomainMessage(update.Message)

			// ответ на ожидание (редактирование поста) в обычный поток не идет
			if !update.Message.IsCommand() && b.deliver(msg) {
				continue
			}

			b.wg.Add(1)
			go func(tm *tgbotapi.Message, msg *domain.Message) {
				defer b.wg.Done()
				b.handleMessage(tm, msg)
			}(update.Message, msg)
		}
	}
}

// Stop плавно останавливает бота
func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot...")
	close(b.stopCh)
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("telegram bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("telegram bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *Bot) handleMessage(tm *tgbotapi.Message, msg *domain.Message) {
	if tm.IsCommand() {
		// /edit ждет ответа автора дольше обычного запроса
		timeout := 30 * time.Second
		if tm.Command() == "edit" {
			timeout = 10 * time.Minute
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		b.handleCommand(ctx, tm)
		return
	}

	if b.h.Posts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := b.h.Posts.HandleUserMessage(ctx, msg); err != nil {
		b.log.Error("failed to handle message", "chat_id", msg.ChannelID, "error", err)
	}
}
