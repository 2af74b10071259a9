package repository

import (
	"context"
	"errors"

	"roleplay_bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx то, что нужно репозиторию от пула
type dbtx interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type StreakRepository struct {
	db dbtx
}

func NewStreakRepository(db *pgxpool.Pool) *StreakRepository {
	return &StreakRepository{db: db}
}

// получает или создаёт серию пользователя на сервере
func (r *StreakRepository) GetOrCreate(ctx context.Context, userID, serverID int64) (*domain.ServerUserStreak, error) {
	var s domain.ServerUserStreak

	// попытка найти существующую запись
	err := r.db.QueryRow(ctx,
		`SELECT user_id, server_id, streak, last_streak_at
		 FROM server_user_streaks
		 WHERE user_id = $1 AND server_id = $2`,
		userID, serverID,
	).Scan(&s.UserID, &s.ServerID, &s.Streak, &s.LastStreakAt)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// создать новую запись; гонка двух первых сообщений решается ON CONFLICT
	err = r.db.QueryRow(ctx,
		`INSERT INTO server_user_streaks (user_id, server_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, server_id) DO UPDATE SET streak = server_user_streaks.streak
		 RETURNING user_id, server_id, streak, last_streak_at`,
		userID, serverID,
	).Scan(&s.UserID, &s.ServerID, &s.Streak, &s.LastStreakAt)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (r *StreakRepository) Update(ctx context.Context, s *domain.ServerUserStreak) error {
	_, err := r.db.Exec(ctx,
		`UPDATE server_user_streaks
		 SET streak = $3, last_streak_at = $4
		 WHERE user_id = $1 AND server_id = $2`,
		s.UserID, s.ServerID, s.Streak, s.LastStreakAt,
	)
	return err
}
