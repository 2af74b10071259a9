package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"roleplay_bot/internal/http/handlers"
	"roleplay_bot/internal/logger"
)

// RateLimiter фиксированное окно в Redis. Без Redis или при его ошибке
// работает локальный token bucket на процесс.
type RateLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	local  cmap.ConcurrentMap[string, *rate.Limiter]
	now    func() time.Time
	log    *slog.Logger
}

// NewRateLimiter perMinute <= 0 отключает ограничение; rdb может быть nil
func NewRateLimiter(rdb redis.Cmdable, perMinute int) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		limit:  perMinute,
		window: time.Minute,
		local:  cmap.New[*rate.Limiter](),
		now:    time.Now,
		log:    logger.With("component", "ratelimit"),
	}
}

// Allow учитывает запрос с ключом key
func (l *RateLimiter) Allow(ctx context.Context, key string) bool {
	if l.limit <= 0 {
		return true
	}
	if l.rdb == nil {
		return l.allowLocal(key)
	}

	bucket := l.now().Unix() / int64(l.window/time.Second)
	k := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("redis rate limit unavailable, using local limiter", "error", err)
		return l.allowLocal(key)
	}
	return incr.Val() <= int64(l.limit)
}

func (l *RateLimiter) allowLocal(key string) bool {
	lim, ok := l.local.Get(key)
	if !ok {
		lim = l.local.Upsert(key, nil, func(exist bool, inMap, _ *rate.Limiter) *rate.Limiter {
			if exist {
				return inMap
			}
			return rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)
		})
	}
	return lim.Allow()
}

// Middleware ключ - пользователь, если он уже известен, иначе IP
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if v, ok := c.Get(handlers.UserIDKey); ok {
			if id, ok := v.(int64); ok {
				key = "user:" + strconv.FormatInt(id, 10)
			}
		}

		if !l.Allow(c.Request.Context(), key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
