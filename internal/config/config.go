// Package config loads settings for the binaries and examples from the
// environment, with an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mhpenta/crptapi"
	"github.com/mhpenta/crptapi/ratelimiter"
)

// Config holds every setting the binaries read from the environment.
type Config struct {
	Client   ClientConfig
	Redis    RedisConfig
	Stub     StubConfig
	LogLevel slog.Level
}

// ClientConfig configures the document client.
type ClientConfig struct {
	Endpoint    string
	RateLimit   ratelimiter.Config
	HTTPTimeout time.Duration
}

// RedisConfig is empty (Addr == "") when no shared limiter is wanted.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// StubConfig configures the local stub API.
type StubConfig struct {
	Addr string
}

// Load reads the environment, after loading .env if one exists. Unset
// variables fall back to defaults; malformed ones are an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	client, err := buildClientConfig()
	if err != nil {
		return Config{}, err
	}

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		Client:   client,
		Redis:    redisConfig,
		Stub:     StubConfig{Addr: getEnv("STUB_ADDR", ":8080")},
		LogLevel: level,
	}, nil
}

func buildClientConfig() (ClientConfig, error) {
	window, err := time.ParseDuration(getEnv("CRPT_WINDOW", "1s"))
	if err != nil {
		return ClientConfig{}, fmt.Errorf("invalid CRPT_WINDOW: %w", err)
	}
	limit, err := strconv.Atoi(getEnv("CRPT_REQUEST_LIMIT", "5"))
	if err != nil {
		return ClientConfig{}, fmt.Errorf("invalid CRPT_REQUEST_LIMIT: %w", err)
	}
	timeout, err := time.ParseDuration(getEnv("CRPT_HTTP_TIMEOUT", crptapi.DefaultHTTPTimeout.String()))
	if err != nil {
		return ClientConfig{}, fmt.Errorf("invalid CRPT_HTTP_TIMEOUT: %w", err)
	}

	rl := ratelimiter.Per(window, limit)
	if err := rl.Validate(); err != nil {
		return ClientConfig{}, err
	}

	return ClientConfig{
		Endpoint:    getEnv("CRPT_ENDPOINT", crptapi.DefaultEndpoint),
		RateLimit:   rl,
		HTTPTimeout: timeout,
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	db, err := strconv.Atoi(getEnv("CRPT_REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid CRPT_REDIS_DB: %w", err)
	}

	return RedisConfig{
		Addr:     strings.TrimSpace(os.Getenv("CRPT_REDIS_ADDR")),
		Password: os.Getenv("CRPT_REDIS_PASSWORD"),
		DB:       db,
		Prefix:   getEnv("CRPT_REDIS_PREFIX", "crptapi"),
	}, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}

// Logger returns a text logger writing to stderr at the configured level.
func (c Config) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
