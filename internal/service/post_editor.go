package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/i18n"
	"roleplay_bot/internal/logger"
)

var (
	ErrPostNotFound  = errors.New("пост не найден")
	ErrNotPostAuthor = errors.New("пост принадлежит другому пользователю")
)

const DefaultEditTimeout = 2 * time.Minute

type EditRequest struct {
	UserID        int64
	ServerID      int64
	ChannelID     int64
	PostMessageID int64
	Language      string
}

// PostEditor заменяет текст уже отправленного поста следующим сообщением автора
type PostEditor struct {
	posts      PostStore
	characters *CharacterService
	sender     Sender
	collector  Collector
	guard      *EditingGuard
	timeout    time.Duration
	log        *slog.Logger
}

func NewPostEditor(posts PostStore, characters *CharacterService, sender Sender, collector Collector, guard *EditingGuard, timeout time.Duration) *PostEditor {
	if timeout <= 0 {
		timeout = DefaultEditTimeout
	}
	return &PostEditor{
		posts:      posts,
		characters: characters,
		sender:     sender,
		collector:  collector,
		guard:      guard,
		timeout:    timeout,
		log:        logger.With("component", "post_editor"),
	}
}

// EditPost ждет новый текст от автора. По таймауту возвращает nil, nil,
// защелка редактирования снимается на любом выходе.
func (e *PostEditor) EditPost(ctx context.Context, req EditRequest) (*domain.Post, error) {
	post, err := e.posts.Get(ctx, req.ChannelID, req.PostMessageID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.AuthorID != req.UserID {
		return nil, ErrNotPostAuthor
	}

	ctx = logger.ContextWith(ctx, "user_id", req.UserID, "channel_id", req.ChannelID, "post_id", post.MessageID)
	log := logger.FromContext(ctx, e.log)

	var updated *domain.Post
	err = e.guard.Do(ctx, req.UserID, func(ctx context.Context) error {
		prompt, err := e.sender.SendMessage(ctx, req.ChannelID, domain.MessageBody{Content: i18n.T(req.Language, i18n.EditPrompt)})
		if err != nil {
			return err
		}
		defer func() {
			if err := e.sender.DeleteMessage(ctx, prompt.Ref); err != nil {
				log.Debug("failed to delete edit prompt", "error", err)
			}
		}()

		reply, err := e.collector.CollectNextMessage(ctx, req.ChannelID, func(m *domain.Message) bool {
			return m.Author.ID == req.UserID && strings.TrimSpace(m.Content) != ""
		}, e.timeout)
		if err != nil {
			return err
		}
		if reply == nil {
			if _, err := e.sender.SendMessage(ctx, req.ChannelID, domain.MessageBody{Content: i18n.T(req.Language, i18n.EditCancelled)}); err != nil {
				log.Debug("failed to send edit cancel notice", "error", err)
			}
			return nil
		}

		content, _ := stripMentions(reply.Content, reply.Mentions)
		if err := e.posts.UpdateContent(ctx, post.ChannelID, post.MessageID, content); err != nil {
			return err
		}
		post.Content = content

		if err := e.rerender(ctx, post, reply, req.Language); err != nil {
			log.Warn("failed to update displayed post", "error", err)
		}
		if err := e.sender.DeleteMessage(ctx, domain.MessageRef{ChannelID: reply.ChannelID, MessageID: reply.ID}); err != nil {
			log.Debug("failed to delete edit reply", "error", err)
		}

		updated = post
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (e *PostEditor) rerender(ctx context.Context, post *domain.Post, reply *domain.Message, lang string) error {
	if len(post.CharacterIDs) == 0 {
		return nil
	}
	char, err := e.characters.Get(ctx, post.CharacterIDs[0])
	if err != nil || char == nil {
		return err
	}
	body := BuildPostBody(char, reply, lang)
	return e.sender.EditMessage(ctx, domain.MessageRef{ChannelID: post.ChannelID, MessageID: post.MessageID}, body)
}
