// Package config provides centralized configuration loaded from environment
// variables, plus the static service registry. Shared by cmd/streamwatch
// and cmd/streamctl.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/powellbutte/streamwatch/internal/schedule"
)

// --------------------------------------------------------------------------
// Service registry — the published Sunday live-stream schedule
// --------------------------------------------------------------------------

// ServiceRegistry lists the recurring live-streamed services in published
// order. Window evaluation and reminder planning both iterate this slice,
// so its order is the deterministic tie-breaker for overlapping windows.
var ServiceRegistry = []schedule.Rule{
	{ID: "early", Label: "Early Service", Weekday: time.Sunday, Hour: 8, Minute: 30},
	{ID: "traditional", Label: "Traditional Service", Weekday: time.Sunday, Hour: 10, Minute: 30},
	{ID: "contemporary", Label: "Contemporary Service", Weekday: time.Sunday, Hour: 11, Minute: 30},
}

// RuleByID returns the registry rule with the given ID.
func RuleByID(id string) (schedule.Rule, bool) {
	for _, r := range ServiceRegistry {
		if r.ID == id {
			return r, true
		}
	}
	return schedule.Rule{}, false
}

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database (optional — empty means in-memory state only)
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Live-status oracle (YouTube Data API v3)
	YouTubeAPIKey    string
	YouTubeChannelID string

	// Monitoring
	Timezone     string
	PollInterval time.Duration
	ProbeTimeout time.Duration
	LiveCooldown time.Duration
	PreRoll      time.Duration
	PostRoll     time.Duration

	// Notification delivery webhook (optional — empty logs emissions)
	NotifyWebhookURL string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:8081",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		YouTubeAPIKey:    envOr("YOUTUBE_API_KEY", ""),
		YouTubeChannelID: envOr("YOUTUBE_CHANNEL_ID", "UCUerZC3kOwd13O3BlJFPSaA"),

		Timezone:     envOr("SERVICE_TIMEZONE", "America/Los_Angeles"),
		PollInterval: time.Duration(envInt("POLL_INTERVAL_SECONDS", 120)) * time.Second,
		ProbeTimeout: time.Duration(envInt("PROBE_TIMEOUT_SECONDS", 10)) * time.Second,
		LiveCooldown: time.Duration(envInt("LIVE_COOLDOWN_MINUTES", 15)) * time.Minute,
		PreRoll:      time.Duration(envInt("WINDOW_PRE_ROLL_MINUTES", 15)) * time.Minute,
		PostRoll:     time.Duration(envInt("WINDOW_POST_ROLL_MINUTES", 45)) * time.Minute,

		NotifyWebhookURL: envOr("NOTIFY_WEBHOOK_URL", ""),
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid SERVICE_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	return cfg, nil
}

// Location returns the timezone the service schedule is anchored to.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Windows builds the probing windows for every registered service.
func (c *Config) Windows() []schedule.Window {
	windows := make([]schedule.Window, 0, len(ServiceRegistry))
	for _, rule := range ServiceRegistry {
		windows = append(windows, schedule.Window{
			Rule:     rule,
			PreRoll:  c.PreRoll,
			PostRoll: c.PostRoll,
		})
	}
	return windows
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
