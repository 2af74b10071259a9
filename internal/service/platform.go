package service

import (
	"context"
	"time"

	"roleplay_bot/internal/domain"
)

// Sender отправка и правка сообщений в чате
type Sender interface {
	SendMessage(ctx context.Context, channelID int64, body domain.MessageBody) (*domain.SentMessage, error)
	EditMessage(ctx context.Context, ref domain.MessageRef, body domain.MessageBody) error
	DeleteMessage(ctx context.Context, ref domain.MessageRef) error
}

// Collector ждет следующее сообщение, подходящее под filter.
// По таймауту возвращает nil, nil.
type Collector interface {
	CollectNextMessage(ctx context.Context, channelID int64, filter func(*domain.Message) bool, timeout time.Duration) (*domain.Message, error)
}

// Member участник сервера глазами платформы
type Member struct {
	UserID   int64
	Nickname string
	IsOwner  bool
	IsAdmin  bool
	IsSelf   bool // сам бот
}

type MemberDirectory interface {
	Member(ctx context.Context, serverID, userID int64) (*Member, error)
}

type NicknameSetter interface {
	SetNickname(ctx context.Context, serverID, userID int64, nickname string) error
	NicknameLimit() int
}
