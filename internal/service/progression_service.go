package service

import (
	"context"
	"log/slog"
	"time"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/game"
	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/metrics"
)

// ProgressionService начисляет опыт за посты
type ProgressionService struct {
	characters CharacterStore
	ranker     Ranker
	events     Publisher
	metrics    *metrics.Metrics
	log        *slog.Logger

	cooldown time.Duration
	rollXP   func() int
	now      func() time.Time
}

type ProgressionOption func(*ProgressionService)

func WithProgressionClock(now func() time.Time) ProgressionOption {
	return func(s *ProgressionService) { s.now = now }
}

// WithXPRoller подменяет генератор опыта, нужно в тестах
func WithXPRoller(roll func() int) ProgressionOption {
	return func(s *ProgressionService) { s.rollXP = roll }
}

// ranker может быть nil. cooldown 0 отключает кулдаун, отрицательный дает значение по умолчанию.
func NewProgressionService(characters CharacterStore, ranker Ranker, events Publisher, m *metrics.Metrics, cooldown time.Duration, opts ...ProgressionOption) *ProgressionService {
	if events == nil {
		events = NopPublisher()
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	if cooldown < 0 {
		cooldown = game.XPCooldown
	}
	s := &ProgressionService{
		characters: characters,
		ranker:     ranker,
		events:     events,
		metrics:    m,
		log:        logger.With("component", "progression"),
		cooldown:   cooldown,
		rollXP:     game.RollXP,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type LevelUpEvent struct {
	CharacterID int64 `json:"character_id"`
	OwnerID     int64 `json:"owner_id"`
	ServerID    int64 `json:"server_id"`
	Level       int   `json:"level"`
}

// RecordPost отмечает пост персонажа и, если кулдаун прошел, начисляет опыт.
// c меняется на месте и сохраняется. Пропавшая строка дает ErrCharacterVanished.
func (s *ProgressionService) RecordPost(ctx context.Context, c *domain.Character, serverID int64) (game.Gain, error) {
	now := s.now()
	c.LastPostAt = &now

	var gain game.Gain
	if game.CooldownPassed(c.LastExpGainAt, now, s.cooldown) {
		gain = game.ApplyGain(c, s.rollXP(), now)
	}

	ok, err := s.characters.Update(ctx, c)
	if err != nil {
		return game.Gain{}, err
	}
	if !ok {
		return game.Gain{}, ErrCharacterVanished
	}

	if !gain.Changed {
		return gain, nil
	}

	s.metrics.XPAwarded.Add(float64(gain.Gained))
	if s.ranker != nil {
		if err := s.ranker.Record(ctx, c); err != nil {
			s.log.Warn("failed to update leaderboard", "character_id", c.ID, "error", err)
		}
	}

	if gain.LeveledUp {
		s.metrics.LevelUps.Inc()
		logger.FromContext(ctx, s.log).Info("character leveled up", "character_id", c.ID, "level", c.Level)
		ev := LevelUpEvent{CharacterID: c.ID, OwnerID: c.OwnerID, ServerID: serverID, Level: c.Level}
		if err := s.events.Publish(ctx, SubjectLevelUp, ev); err != nil {
			s.log.Warn("failed to publish level up", "error", err)
		}
	}
	return gain, nil
}
