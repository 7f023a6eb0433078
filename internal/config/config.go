package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is loaded once at process start and stays immutable afterwards.
// Token lifetimes default to the values the product shipped with:
// 30 minute access tokens, 30 day refresh tokens, 10 minute reset and
// verify tokens.
type Config struct {
	Port        string
	DatabaseURL string

	JWTSecret        string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	ResetPasswordTTL time.Duration
	VerifyEmailTTL   time.Duration

	// RedisAddr enables the auth rate limiter when set.
	RedisAddr         string
	LoginRateCapacity int
	LoginRateRefill   time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:              envDefault("HTTP_PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AccessTTL:         envMinutes("JWT_ACCESS_EXPIRATION_MINUTES", 30),
		RefreshTTL:        envDays("JWT_REFRESH_EXPIRATION_DAYS", 30),
		ResetPasswordTTL:  envMinutes("JWT_RESET_PASSWORD_EXPIRATION_MINUTES", 10),
		VerifyEmailTTL:    envMinutes("JWT_VERIFY_EMAIL_EXPIRATION_MINUTES", 10),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		LoginRateCapacity: envInt("LOGIN_RATE_CAPACITY", 10),
		LoginRateRefill:   envMinutes("LOGIN_RATE_REFILL_MINUTES", 1),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is empty")
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envMinutes(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Minute
}

func envDays(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * 24 * time.Hour
}
