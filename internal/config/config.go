package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"roleplay_bot/internal/logger"
)

type Config struct {
	AppPort     string `env:"APP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"` // пусто - хранилище в памяти
	RedisURL    string `env:"REDIS_URL"`
	NatsURL     string `env:"NATS_URL"`
	BotToken    string `env:"BOT_TOKEN"`
	JWTSecret   string `env:"JWT_SECRET"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	XPCooldown      time.Duration `env:"XP_COOLDOWN" envDefault:"30m"`
	EditTimeout     time.Duration `env:"EDIT_TIMEOUT" envDefault:"2m"`
	HookTimeout     time.Duration `env:"HOOK_TIMEOUT" envDefault:"10s"`
	NicknameRate    time.Duration `env:"NICKNAME_RATE" envDefault:"2s"` // минимальный интервал между переименованиями
	RateLimitPerMin int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	DefaultLanguage string        `env:"DEFAULT_LANGUAGE" envDefault:"en-US"`
}

// JSONLogs true, если LOG_FORMAT=json
func (c *Config) JSONLogs() bool {
	return c.LogFormat == "json"
}

// Parse читает переменные окружения
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.XPCooldown < 0 || cfg.EditTimeout <= 0 {
		return nil, fmt.Errorf("invalid durations: XP_COOLDOWN=%s EDIT_TIMEOUT=%s", cfg.XPCooldown, cfg.EditTimeout)
	}
	return &cfg, nil
}

// Load подгружает .env (если есть) и завершает процесс при ошибке
func Load() *Config {
	// .env необязателен, в проде переменные приходят из окружения
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}
	return cfg
}
