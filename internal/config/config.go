package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DBPath   string
	Timezone string

	PlatformURL string
	BotToken    string
	OwnerUserID string

	BreakLength   time.Duration
	IdleWarning   time.Duration
	AlertCooldown time.Duration

	SweepInterval time.Duration
	SweepGrace    time.Duration
}

// Load reads configuration from the environment, with a .env file as an
// optional source.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DBPath:      getEnv("DB_PATH", "data/shiftbot.db"),
		Timezone:    getEnv("TIMEZONE", "Asia/Karachi"),
		PlatformURL: strings.TrimRight(getEnv("PLATFORM_URL", "http://localhost:8065"), "/"),
		BotToken:    getEnv("BOT_TOKEN", ""),
		OwnerUserID: getEnv("OWNER_USER_ID", ""),
	}

	var err error
	if cfg.BreakLength, err = minutesEnv("BREAK_MINUTES", 40); err != nil {
		return nil, err
	}
	if cfg.IdleWarning, err = secondsEnv("IDLE_WARNING_SECONDS", 300); err != nil {
		return nil, err
	}
	if cfg.AlertCooldown, err = secondsEnv("WARNING_COOLDOWN_SECONDS", 1800); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = secondsEnv("SWEEP_INTERVAL_SECONDS", 60); err != nil {
		return nil, err
	}
	if cfg.SweepGrace, err = minutesEnv("SWEEP_GRACE_MINUTES", 15); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func minutesEnv(key string, fallback int) (time.Duration, error) {
	n, err := intEnv(key, fallback)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Minute, nil
}

func secondsEnv(key string, fallback int) (time.Duration, error) {
	n, err := intEnv(key, fallback)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
