package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Slack     SlackConfig
	Tickets   TicketsConfig
	Sweep     SweepConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	InteractionWorkers    int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SlackConfig holds workspace credentials and channels.
type SlackConfig struct {
	BotToken           string
	SigningSecret      string
	TicketChannel      string
	AdminChannel       string
	MetadataSecret     string
	MetadataTTLMinutes int
}

// TicketsConfig holds ticket policy inputs.
type TicketsConfig struct {
	Responders  []string
	Timezone    string
	PageSize    int
	ExportLimit int
	CatalogPath string
}

// SweepConfig controls the stale and overdue sweep.
type SweepConfig struct {
	StaleAfterHours   int
	OverdueAfterHours int
	LockTTLSeconds    int
}

// RateLimitConfig bounds requests per Slack user.
type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticketbot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 10),
			InteractionWorkers:    getEnvAsInt("INTERACTION_WORKERS", 32),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "ticketbot:"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Slack: SlackConfig{
			BotToken:           os.Getenv("SLACK_BOT_TOKEN"),
			SigningSecret:      os.Getenv("SLACK_SIGNING_SECRET"),
			TicketChannel:      os.Getenv("SLACK_CHANNEL_ID"),
			AdminChannel:       os.Getenv("ADMIN_CHANNEL"),
			MetadataSecret:     os.Getenv("SLACK_METADATA_SECRET"),
			MetadataTTLMinutes: getEnvAsInt("SLACK_METADATA_TTL_MINUTES", 30),
		},
		Tickets: TicketsConfig{
			Responders:  getEnvAsList("SYSTEM_USERS"),
			Timezone:    getEnv("TIMEZONE", "America/New_York"),
			PageSize:    getEnvAsInt("TICKETS_PAGE_SIZE", 5),
			ExportLimit: getEnvAsInt("TICKETS_EXPORT_LIMIT", 5000),
			CatalogPath: os.Getenv("TICKETS_CATALOG_PATH"),
		},
		Sweep: SweepConfig{
			StaleAfterHours:   getEnvAsInt("SWEEP_STALE_AFTER_HOURS", 72),
			OverdueAfterHours: getEnvAsInt("SWEEP_OVERDUE_AFTER_HOURS", 168),
			LockTTLSeconds:    getEnvAsInt("SWEEP_LOCK_TTL_SECONDS", 300),
		},
		RateLimit: RateLimitConfig{
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 30),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
	}

	if cfg.Slack.MetadataSecret == "" {
		cfg.Slack.MetadataSecret = cfg.Slack.SigningSecret
	}
	return cfg, nil
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	var problems []error
	if c.Slack.BotToken == "" {
		problems = append(problems, errors.New("SLACK_BOT_TOKEN is required"))
	}
	if c.Slack.SigningSecret == "" {
		problems = append(problems, errors.New("SLACK_SIGNING_SECRET is required"))
	}
	if c.Slack.TicketChannel == "" {
		problems = append(problems, errors.New("SLACK_CHANNEL_ID is required"))
	}
	if len(c.Tickets.Responders) == 0 {
		problems = append(problems, errors.New("SYSTEM_USERS must list at least one responder"))
	}
	if c.Tickets.PageSize <= 0 {
		problems = append(problems, errors.New("TICKETS_PAGE_SIZE must be positive"))
	}
	if _, err := time.LoadLocation(c.Tickets.Timezone); err != nil {
		problems = append(problems, fmt.Errorf("invalid TIMEZONE %q: %w", c.Tickets.Timezone, err))
	}
	return errors.Join(problems...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the ticket time zone, falling back to UTC.
func (t TicketsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StaleAfter is the idle age after which an active ticket is stale.
func (s SweepConfig) StaleAfter() time.Duration {
	return time.Duration(s.StaleAfterHours) * time.Hour
}

// OverdueAfter is the age after which an assigned ticket is overdue.
func (s SweepConfig) OverdueAfter() time.Duration {
	return time.Duration(s.OverdueAfterHours) * time.Hour
}

// LockTTL bounds how long one sweep may hold the lock.
func (s SweepConfig) LockTTL() time.Duration {
	return time.Duration(s.LockTTLSeconds) * time.Second
}

// Window is the fixed rate limit window.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// Enabled reports whether rate limiting applies.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && r.WindowSeconds > 0
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
