package service

import (
	"context"
	"errors"
	"strconv"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"roleplay_bot/internal/domain"
)

var ErrAlreadyEditing = errors.New("пользователь уже редактирует пост")

// EditingGuard защелка "редактирует пост" на пользователя
type EditingGuard struct {
	states cmap.ConcurrentMap[string, domain.EditingState]
}

func NewEditingGuard() *EditingGuard {
	return &EditingGuard{states: cmap.New[domain.EditingState]()}
}

func editingKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (g *EditingGuard) State(userID int64) domain.EditingState {
	st, ok := g.states.Get(editingKey(userID))
	if !ok {
		return domain.NotEditing
	}
	return st
}

func (g *EditingGuard) IsEditing(userID int64) bool {
	return g.State(userID) == domain.Editing
}

// Acquire ставит защелку. release можно звать сколько угодно раз.
func (g *EditingGuard) Acquire(userID int64) (release func(), ok bool) {
	key := editingKey(userID)
	if !g.states.SetIfAbsent(key, domain.Editing) {
		return nil, false
	}
	var once sync.Once
	return func() {
		once.Do(func() { g.states.Remove(key) })
	}, true
}

// Do выполняет fn под защелкой и снимает ее при любом выходе, включая панику
func (g *EditingGuard) Do(ctx context.Context, userID int64, fn func(ctx context.Context) error) error {
	release, ok := g.Acquire(userID)
	if !ok {
		return ErrAlreadyEditing
	}
	defer release()
	return fn(ctx)
}
