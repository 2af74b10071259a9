// Package cache рейтинг персонажей в redis
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/logger"
)

const leaderboardKey = "leaderboard:characters"

// Connect разбирает REDIS_URL и проверяет соединение
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 10 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)
	return rdb, nil
}

// Leaderboard сортированное множество персонажей по уровню и опыту
type Leaderboard struct {
	rdb *redis.Client
	key string
}

func NewLeaderboard(rdb *redis.Client) *Leaderboard {
	return &Leaderboard{rdb: rdb, key: leaderboardKey}
}

// Score уровень важнее любого опыта
func Score(level, exp int) float64 {
	return float64(level)*1e6 + float64(exp)
}

func member(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (l *Leaderboard) Record(ctx context.Context, c *domain.Character) error {
	err := l.rdb.ZAdd(ctx, l.key, redis.Z{Score: Score(c.Level, c.Exp), Member: member(c.ID)}).Err()
	if err != nil {
		return fmt.Errorf("failed to record character: %w", err)
	}
	return nil
}

func (l *Leaderboard) Remove(ctx context.Context, characterID int64) error {
	return l.rdb.ZRem(ctx, l.key, member(characterID)).Err()
}

// Top id персонажей, лучшие первыми
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]int64, error) {
	members, err := l.rdb.ZRevRange(ctx, l.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get top characters: %w", err)
	}
	return parseMembers(members)
}

func parseMembers(members []string) ([]int64, error) {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad leaderboard member %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Warm заполняет рейтинг из базы при старте
func (l *Leaderboard) Warm(ctx context.Context, chars []*domain.Character) error {
	if len(chars) == 0 {
		return nil
	}
	pipe := l.rdb.Pipeline()
	for _, c := range chars {
		pipe.ZAdd(ctx, l.key, redis.Z{Score: Score(c.Level, c.Exp), Member: member(c.ID)})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to warm leaderboard: %w", err)
	}
	return nil
}
