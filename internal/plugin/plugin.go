// Package plugin содержит каталог плагинов, их включение по серверам
// и раздачу событий хукам.
//
// Плагин обязан реализовать только Plugin. Каждый хук это отдельный
// необязательный интерфейс; диспетчер проверяет его через type assertion.
package plugin

import (
	"context"

	"roleplay_bot/internal/domain"
)

type Plugin interface {
	Name() string
	Description() string
	Commands() []Command
}

type Hook string

const (
	HookBeforePost        Hook = "before_post"
	HookAfterPost         Hook = "after_post"
	HookBeforeShowProfile Hook = "before_show_profile"
	HookAfterShowProfile  Hook = "after_show_profile"
	HookUserMessage       Hook = "user_message"
)

// PostEvent общий для всех хуков одного поста, хуки его не меняют
type PostEvent struct {
	Message   *domain.Message
	Character *domain.Character
	Author    *domain.User
	Post      *domain.Post // только в AfterPost
}

type ProfileEvent struct {
	ServerID  int64
	Character *domain.Character
	Viewer    *domain.User
	Panel     *domain.SentMessage // только в AfterShowProfile
}

// BeforePostHook может переписать payload до отправки
type BeforePostHook interface {
	BeforePost(ctx context.Context, ev *PostEvent, payload *domain.Payload) error
}

type AfterPostHook interface {
	AfterPost(ctx context.Context, ev *PostEvent) error
}

// BeforeShowProfileHook может дописать поля в карточку профиля
type BeforeShowProfileHook interface {
	BeforeShowProfile(ctx context.Context, ev *ProfileEvent, payload *domain.Payload) error
}

type AfterShowProfileHook interface {
	AfterShowProfile(ctx context.Context, ev *ProfileEvent) error
}

// UserMessageHook видит любое сообщение пользователя на сервере
type UserMessageHook interface {
	UserMessage(ctx context.Context, msg *domain.Message) error
}

// Invocation вызов команды плагина
type Invocation struct {
	ServerID     int64
	ChannelID    int64
	UserID       int64
	UserName     string
	Language     string
	Args         []string
	TargetUserID int64 // из reply или text_mention в команде, 0 если не указан
	IsAdmin      bool
}

type CommandFunc func(ctx context.Context, inv *Invocation) (string, error)

type Command struct {
	Name        string
	Description string
	Run         CommandFunc
}

// CommandSurface команды сервера на стороне платформы
type CommandSurface interface {
	RegisterCommands(ctx context.Context, serverID int64, cmds []Command) error
	UnregisterCommands(ctx context.Context, serverID int64, cmds []Command) error
}

// ConfigStore хранит включенные плагины сервера
type ConfigStore interface {
	EnabledPlugins(ctx context.Context, serverID int64) ([]string, error)
	SetPluginEnabled(ctx context.Context, serverID int64, name string, enabled bool) error
}
