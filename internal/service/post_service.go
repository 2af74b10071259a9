package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/i18n"
	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/metrics"
	"roleplay_bot/internal/plugin"
)

// причины, по которым сообщение не стало постом
const (
	skipBot            = "bot"
	skipEditing        = "editing"
	skipOutOfCharacter = "out_of_character"
	skipEmpty          = "empty"
	skipNoCharacter    = "no_character"
)

type PostServiceDeps struct {
	Characters  *CharacterService
	Progression *ProgressionService
	Registry    *plugin.Registry
	Dispatcher  *plugin.Dispatcher
	Sender      Sender
	Posts       PostStore
	Editing     *EditingGuard
	Events      Publisher
	Metrics     *metrics.Metrics
}

// PostService превращает сообщения пользователей в посты персонажей
type PostService struct {
	characters  *CharacterService
	progression *ProgressionService
	registry    *plugin.Registry
	dispatcher  *plugin.Dispatcher
	sender      Sender
	posts       PostStore
	editing     *EditingGuard
	events      Publisher
	metrics     *metrics.Metrics
	log         *slog.Logger

	persistRetries uint64
}

func NewPostService(d PostServiceDeps) *PostService {
	if d.Events == nil {
		d.Events = NopPublisher()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewUnregistered()
	}
	if d.Editing == nil {
		d.Editing = NewEditingGuard()
	}
	return &PostService{
		characters:     d.Characters,
		progression:    d.Progression,
		registry:       d.Registry,
		dispatcher:     d.Dispatcher,
		sender:         d.Sender,
		posts:          d.Posts,
		editing:        d.Editing,
		events:         d.Events,
		metrics:        d.Metrics,
		log:            logger.With("component", "posts"),
		persistRetries: 3,
	}
}

// HandleUserMessage точка входа для каждого сообщения сервера:
// хуки UserMessage, затем попытка сделать пост.
func (s *PostService) HandleUserMessage(ctx context.Context, msg *domain.Message) (*domain.Post, error) {
	if msg.Author.IsBot {
		s.metrics.PostsSkipped.WithLabelValues(skipBot).Inc()
		return nil, nil
	}
	ctx = logger.ContextWith(ctx, "server_id", msg.ServerID, "user_id", msg.Author.ID, "message_id", msg.ID)

	plugins := s.enabledPlugins(ctx, msg.ServerID)
	s.dispatcher.UserMessage(ctx, plugins, msg)

	return s.AwardContentPost(ctx, msg)
}

func (s *PostService) enabledPlugins(ctx context.Context, serverID int64) []plugin.Plugin {
	plugins, err := s.registry.Enabled(ctx, serverID)
	if err != nil {
		logger.FromContext(ctx, s.log).Error("failed to load enabled plugins", "error", err)
		return nil
	}
	return plugins
}

func (s *PostService) skip(reason string) (*domain.Post, error) {
	s.metrics.PostsSkipped.WithLabelValues(reason).Inc()
	return nil, nil
}

// AwardContentPost отправляет сообщение от лица текущего персонажа.
// nil, nil - сообщение не подходит. Ошибка только если пост не ушел в чат.
func (s *PostService) AwardContentPost(ctx context.Context, msg *domain.Message) (*domain.Post, error) {
	switch {
	case msg.Author.IsBot:
		return s.skip(skipBot)
	case s.editing.IsEditing(msg.Author.ID):
		return s.skip(skipEditing)
	case IsOutOfCharacter(msg.Content):
		return s.skip(skipOutOfCharacter)
	case strings.TrimSpace(msg.Content) == "" && len(msg.Attachments) == 0:
		return s.skip(skipEmpty)
	}

	log := logger.FromContext(ctx, s.log)

	char, user, err := s.characters.Current(ctx, msg.Author.ID)
	if err != nil {
		log.Error("failed to load current character", "error", err)
		return nil, nil
	}
	if char == nil {
		return s.skip(skipNoCharacter)
	}
	ctx = logger.ContextWith(ctx, "character_id", char.ID)
	log = logger.FromContext(ctx, s.log)

	plugins := s.enabledPlugins(ctx, msg.ServerID)
	ev := &plugin.PostEvent{Message: msg, Character: char.Clone(), Author: user}

	payload := domain.NewPayload(BuildPostBody(char, msg, user.PreferredLanguage))
	s.dispatcher.BeforePost(ctx, plugins, ev, payload)

	sent, err := s.sender.SendMessage(ctx, msg.ChannelID, payload.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("send post: %w", err)
	}
	s.metrics.PostsSent.Inc()

	content, _ := stripMentions(msg.Content, msg.Mentions)
	post := &domain.Post{
		MessageID:    sent.Ref.MessageID,
		ChannelID:    sent.Ref.ChannelID,
		ServerID:     msg.ServerID,
		AuthorID:     msg.Author.ID,
		Content:      content,
		CharacterIDs: []int64{char.ID},
	}
	if err := s.persist(ctx, post); err != nil {
		log.Error("failed to save post", "error", err)
	}

	gain, err := s.progression.RecordPost(ctx, char, msg.ServerID)
	switch {
	case errors.Is(err, ErrCharacterVanished):
		log.Error("character vanished while awarding experience", "error", err)
	case err != nil:
		log.Error("failed to award experience", "error", err)
	case gain.LeveledUp:
		notice := domain.MessageBody{Content: i18n.T(user.PreferredLanguage, i18n.CharacterLevelUp, char.Name, char.Level)}
		if _, err := s.sender.SendMessage(ctx, msg.ChannelID, notice); err != nil {
			log.Warn("failed to send level up notice", "error", err)
		}
	}

	if err := s.events.Publish(ctx, SubjectPostCreated, post); err != nil {
		log.Warn("failed to publish post event", "error", err)
	}

	ev.Post = post
	ev.Character = char.Clone()
	s.dispatcher.AfterPost(ctx, plugins, ev)

	if err := s.sender.DeleteMessage(ctx, domain.MessageRef{ChannelID: msg.ChannelID, MessageID: msg.ID}); err != nil {
		log.Debug("failed to delete source message", "error", err)
	}

	return post, nil
}

// persist сохраняет запись о посте с несколькими повторами
func (s *PostService) persist(ctx context.Context, post *domain.Post) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second

	return backoff.Retry(func() error {
		return s.posts.Create(ctx, post)
	}, backoff.WithContext(backoff.WithMaxRetries(b, s.persistRetries), ctx))
}
