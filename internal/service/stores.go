package service

import (
	"context"
	"errors"

	"roleplay_bot/internal/domain"
)

var (
	// строка исчезла между чтением и записью - признак порчи данных
	ErrCharacterVanished = errors.New("персонаж исчез во время обновления")
	ErrNotOwner          = errors.New("персонаж принадлежит другому пользователю")
	ErrCharacterNotFound = errors.New("персонаж не найден")
)

// Все Get* возвращают nil, nil если записи нет

type CharacterStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Character, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Character, error)
	ListTop(ctx context.Context, limit int) ([]*domain.Character, error)
	Create(ctx context.Context, c *domain.Character) error
	// Update возвращает false, если строки уже нет
	Update(ctx context.Context, c *domain.Character) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type UserStore interface {
	GetOrCreate(ctx context.Context, id int64, language string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
}

// BalanceStore атомарные операции над балансом (character, server)
type BalanceStore interface {
	GetOrCreate(ctx context.Context, characterID, serverID int64) (int64, error)
	Add(ctx context.Context, characterID, serverID, amount int64) (int64, error)
	// Remove не уводит баланс ниже нуля
	Remove(ctx context.Context, characterID, serverID, amount int64) (int64, error)
	// Transfer одной транзакцией; domain.ErrInsufficientFunds если не хватает
	Transfer(ctx context.Context, fromID, toID, serverID, amount int64) (*domain.Transfer, error)
}

type StreakStore interface {
	GetOrCreate(ctx context.Context, userID, serverID int64) (*domain.ServerUserStreak, error)
	Update(ctx context.Context, s *domain.ServerUserStreak) error
}

type PostStore interface {
	Create(ctx context.Context, p *domain.Post) error
	Get(ctx context.Context, channelID, messageID int64) (*domain.Post, error)
	UpdateContent(ctx context.Context, channelID, messageID int64, content string) error
}

type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// Ranker кеш рейтинга персонажей
type Ranker interface {
	Record(ctx context.Context, c *domain.Character) error
	Remove(ctx context.Context, characterID int64) error
	Top(ctx context.Context, limit int) ([]int64, error)
}

// Publisher шина доменных событий
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

// Subjects
const (
	SubjectPostCreated      = "roleplay.post.created"
	SubjectLevelUp          = "roleplay.character.level_up"
	SubjectMoneyTransferred = "roleplay.money.transferred"
	SubjectPluginToggled    = "roleplay.plugin.toggled"
)

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

// NopPublisher когда NATS не настроен
func NopPublisher() Publisher { return nopPublisher{} }
