package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/game"
	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/metrics"
)

// StreakService серии сообщений пользователя на сервере
type StreakService struct {
	streaks   StreakStore
	members   MemberDirectory
	nicknames NicknameSetter
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// NewStreakService renameEvery задает минимальный интервал между переименованиями,
// members и nicknames могут быть nil, тогда имена не трогаются
func NewStreakService(streaks StreakStore, members MemberDirectory, nicknames NicknameSetter, m *metrics.Metrics, renameEvery time.Duration) *StreakService {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	limit := rate.Inf
	if renameEvery > 0 {
		limit = rate.Every(renameEvery)
	}
	return &StreakService{
		streaks:   streaks,
		members:   members,
		nicknames: nicknames,
		limiter:   rate.NewLimiter(limit, 1),
		metrics:   m,
		log:       logger.With("component", "streak"),
		now:       time.Now,
	}
}

type StreakResult struct {
	Streak  int
	Group   int
	Tier    game.StreakTier
	GroupUp bool
	Renamed bool
}

// Bump засчитывает сообщение. Гонка двух сообщений одного пользователя
// может потерять единицу, это допустимо.
func (s *StreakService) Bump(ctx context.Context, userID, serverID int64) (*StreakResult, error) {
	row, err := s.streaks.GetOrCreate(ctx, userID, serverID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	oldGroup := game.StreakGroup(row.Streak)
	row.Streak = game.NextStreak(row.Streak, row.LastStreakAt, now)
	row.LastStreakAt = &now

	if err := s.streaks.Update(ctx, row); err != nil {
		return nil, err
	}

	newGroup := game.StreakGroup(row.Streak)
	res := &StreakResult{
		Streak:  row.Streak,
		Group:   newGroup,
		Tier:    game.TierFor(newGroup),
		GroupUp: newGroup > oldGroup && newGroup > 0,
	}
	if res.GroupUp {
		res.Renamed = s.rename(ctx, row, res)
	}
	return res, nil
}

func (s *StreakService) rename(ctx context.Context, row *domain.ServerUserStreak, res *StreakResult) bool {
	if s.members == nil || s.nicknames == nil {
		return false
	}
	log := logger.FromContext(ctx, s.log)

	member, err := s.members.Member(ctx, row.ServerID, row.UserID)
	if err != nil {
		log.Warn("failed to load member", "error", err)
		s.metrics.StreakRenames.WithLabelValues("error").Inc()
		return false
	}
	if member == nil || member.IsSelf || member.IsOwner {
		s.metrics.StreakRenames.WithLabelValues("skipped").Inc()
		return false
	}

	nick, ok := game.StreakNickname(member.Nickname, res.Tier, res.Group, s.nicknames.NicknameLimit())
	if !ok {
		s.metrics.StreakRenames.WithLabelValues("too_long").Inc()
		return false
	}

	if err := s.limiter.Wait(ctx); err != nil {
		s.metrics.StreakRenames.WithLabelValues("throttled").Inc()
		return false
	}

	if err := s.nicknames.SetNickname(ctx, row.ServerID, row.UserID, nick); err != nil {
		log.Warn("failed to set streak nickname", "nickname", nick, "error", err)
		s.metrics.StreakRenames.WithLabelValues("error").Inc()
		return false
	}

	s.metrics.StreakRenames.WithLabelValues("ok").Inc()
	return true
}
