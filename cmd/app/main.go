package main

import (
	"context"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"roleplay_bot/internal/bot"
	"roleplay_bot/internal/cache"
	"roleplay_bot/internal/config"
	"roleplay_bot/internal/db"
	"roleplay_bot/internal/events"
	httpServer "roleplay_bot/internal/http"
	"roleplay_bot/internal/http/handlers"
	"roleplay_bot/internal/http/middleware"
	"roleplay_bot/internal/logger"
	"roleplay_bot/internal/metrics"
	"roleplay_bot/internal/plugin"
	"roleplay_bot/internal/plugin/dnd"
	"roleplay_bot/internal/plugin/money"
	"roleplay_bot/internal/plugin/streak"
	"roleplay_bot/internal/repository"
	"roleplay_bot/internal/repository/memstore"
	"roleplay_bot/internal/service"
)

// Version устанавливается при сборке
var Version = "dev"

const leaderboardWarmLimit = 1000

// хранилища, общие для Postgres и памяти
type stores struct {
	characters service.CharacterStore
	users      service.UserStore
	balances   service.BalanceStore
	streaks    service.StreakStore
	posts      service.PostStore
	audit      service.AuditStore
	servers    plugin.ConfigStore
}

func main() {
	cfg := config.Load()

	logger.Init(cfg.LogLevel, cfg.JSONLogs())
	log := logger.Get()

	if cfg.BotToken == "" {
		logger.Fatal("BOT_TOKEN is required")
	}

	ctx := context.Background()
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))

	var st stores
	if cfg.DatabaseURL != "" {
		pool := db.Connect(cfg.DatabaseURL)
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("failed to migrate database", "error", err)
		}
		health.AddReadinessCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(ctx)
		})

		st = stores{
			characters: repository.NewCharacterRepository(pool),
			users:      repository.NewUserRepository(pool),
			balances:   repository.NewBalanceRepository(pool),
			streaks:    repository.NewStreakRepository(pool),
			posts:      repository.NewPostRepository(pool),
			audit:      repository.NewAuditRepository(pool),
			servers:    repository.NewServerRepository(pool),
		}
	} else {
		log.Warn("DATABASE_URL not set - using in-memory storage, data is lost on restart")
		mem := memstore.New()
		st = stores{
			characters: mem.Characters,
			users:      mem.Users,
			balances:   mem.Balances,
			streaks:    mem.Streaks,
			posts:      mem.Posts,
			audit:      mem.Audit,
			servers:    mem.Servers,
		}
	}

	// рейтинг и лимиты в Redis необязательны
	var (
		ranker service.Ranker
		rdb    *redis.Client
	)
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis unavailable, leaderboard falls back to database", "error", err)
		} else {
			rdb = client
			defer rdb.Close()

			board := cache.NewLeaderboard(rdb)
			if top, err := st.characters.ListTop(ctx, leaderboardWarmLimit); err != nil {
				log.Warn("failed to load characters for leaderboard", "error", err)
			} else if err := board.Warm(ctx, top); err != nil {
				log.Warn("failed to warm leaderboard", "error", err)
			}
			ranker = board

			health.AddReadinessCheck("redis", func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return rdb.Ping(ctx).Err()
			})
		}
	}

	publisher := service.NopPublisher()
	if cfg.NatsURL != "" {
		nc, err := events.Connect(cfg.NatsURL)
		if err != nil {
			log.Error("nats unavailable, domain events are not published", "error", err)
		} else {
			defer nc.Drain()
			publisher = events.NewPublisher(nc)
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	tgBot, err := bot.NewBot(cfg.BotToken)
	if err != nil {
		logger.Fatal("failed to start telegram bot", "error", err)
	}

	audit := service.NewAuditService(st.audit)
	characters := service.NewCharacterService(st.characters, st.users, ranker, audit, cfg.DefaultLanguage)
	economy := service.NewEconomyService(st.balances, audit, publisher, m)
	streaks := service.NewStreakService(st.streaks, tgBot, tgBot, m, cfg.NicknameRate)
	progression := service.NewProgressionService(st.characters, ranker, publisher, m, cfg.XPCooldown)

	registry, err := plugin.NewRegistry(st.servers, m,
		money.New(economy, characters),
		dnd.New(rand.IntN),
		streak.New(streaks),
	)
	if err != nil {
		logger.Fatal("failed to build plugin registry", "error", err)
	}
	registry.SetCommandSurface(tgBot)
	dispatcher := plugin.NewDispatcher(m, cfg.HookTimeout)

	editing := service.NewEditingGuard()
	posts := service.NewPostService(service.PostServiceDeps{
		Characters:  characters,
		Progression: progression,
		Registry:    registry,
		Dispatcher:  dispatcher,
		Sender:      tgBot,
		Posts:       st.posts,
		Editing:     editing,
		Events:      publisher,
		Metrics:     m,
	})
	profiles := service.NewProfileService(characters, registry, dispatcher)
	editor := service.NewPostEditor(st.posts, characters, tgBot, tgBot, editing, cfg.EditTimeout)
	servers := service.NewServerService(registry, tgBot, audit, publisher)

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn("JWT_SECRET not set - generated a random one, tokens will not survive restart")
		secret = uuid.NewString()
	}
	jwt := service.NewJWT(secret, 24*time.Hour)

	tgBot.Attach(bot.Handlers{
		Posts:      posts,
		Profiles:   profiles,
		Characters: characters,
		Servers:    servers,
		Editor:     editor,
		Registry:   registry,
	})
	go tgBot.Start()

	r := gin.Default()

	// CORS для мини-приложения на другом домене
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var limiterStore redis.Cmdable
	if rdb != nil {
		limiterStore = rdb
	}
	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler: &handlers.Handler{
			Characters: characters,
			Profiles:   profiles,
			Economy:    economy,
			Servers:    servers,
			JWT:        jwt,
			BotToken:   cfg.BotToken,
		},
		JWT:     jwt,
		Limiter: middleware.NewRateLimiter(limiterStore, cfg.RateLimitPerMin),
		Health:  health,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.Info("server started", "port", cfg.AppPort, "version", Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// бот первым, чтобы не принимать новые сообщения
	tgBot.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
