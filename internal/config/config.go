package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Port          string `env:"PORT" env-default:"8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" env-default:"http://127.0.0.1:3000"`

	DatabaseURL         string `env:"DATABASE_URL"`
	DatabaseAutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE" env-default:"true"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	AuthSecret     string        `env:"AUTH_SECRET"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"8h"`
	RoleCacheTTL   time.Duration `env:"ROLE_CACHE_TTL" env-default:"5m"`

	Timezone      string `env:"TIMEZONE" env-default:"Asia/Jakarta"`
	AuditLogLimit int    `env:"AUDIT_LOG_LIMIT" env-default:"500"`
	ShopName      string `env:"SHOP_NAME" env-default:"Toko Agen"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)

	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 8 * time.Hour
	}
	if cfg.RoleCacheTTL <= 0 {
		cfg.RoleCacheTTL = 5 * time.Minute
	}
	if cfg.AuditLogLimit < 1 || cfg.AuditLogLimit > 500 {
		cfg.AuditLogLimit = 500
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location resolves the configured time zone used for day and shift windows.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		name = "Asia/Jakarta"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", name, err)
	}
	return loc, nil
}
