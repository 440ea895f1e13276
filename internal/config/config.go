/**
 * @description
 * Configuration loader for the Sol Erda price tracker.
 * Reads environment variables (optionally from .env), applies defaults, overlays an
 * optional YAML chart file and performs strict validation.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files
 * - gopkg.in/yaml.v3: For the chart window file
 *
 * @notes
 * - Fails fast if DATABASE_URL is missing or a duration/time zone cannot be parsed.
 * - REDIS_URL may be empty; the shared cache and live stream are then disabled.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/sol-erda/tracker/internal/aggregate"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	Polling PollingConfig
	Display DisplayConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Env  string // "development", "staging", "production" or "test"
}

// DBConfig holds PostgreSQL settings
type DBConfig struct {
	URL string
}

// RedisConfig holds Redis settings
type RedisConfig struct {
	URL string
}

// Enabled reports whether a Redis URL was configured
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// PollingConfig controls how often ocr_data is re-read
type PollingConfig struct {
	Interval  time.Duration
	StaleTime time.Duration
	// WorkerSchedule is a robfig/cron spec used by cmd/worker
	WorkerSchedule string
}

// DisplayConfig controls bucketing and chart presentation
type DisplayConfig struct {
	Location *time.Location
	// ChartLimits caps how many buckets each unit draws on the chart
	ChartLimits map[aggregate.Unit]int
	StatsDays   int
}

// chartFile is the YAML layout of CHART_CONFIG
type chartFile struct {
	Limits    map[string]int `yaml:"limits"`
	StatsDays int            `yaml:"stats_days"`
}

// DefaultChartLimits are used for units the YAML file does not mention
var DefaultChartLimits = map[aggregate.Unit]int{
	aggregate.Minute:    60,
	aggregate.TenMinute: 72,
	aggregate.Hour:      48,
	aggregate.Day:       60,
	aggregate.Month:     24,
}

// Load reads .env file and populates the Config struct
func Load() (*Config, error) {
	// Attempt to load .env, but don't crash if it fails (hosts might inject env vars directly)
	_ = godotenv.Load()

	interval, err := getEnvAsDuration("POLL_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	stale, err := getEnvAsDuration("POLL_STALE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	tz := getEnv("DISPLAY_TIMEZONE", "Asia/Seoul")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", tz, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		DB: DBConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: strings.TrimSpace(getEnv("REDIS_URL", "")),
		},
		Polling: PollingConfig{
			Interval:       interval,
			StaleTime:      stale,
			WorkerSchedule: getEnv("WORKER_SCHEDULE", fmt.Sprintf("@every %s", interval)),
		},
		Display: DisplayConfig{
			Location:    loc,
			ChartLimits: copyLimits(DefaultChartLimits),
			StatsDays:   getEnvAsInt("STATS_DAYS", 14),
		},
	}

	if path := getEnv("CHART_CONFIG", ""); path != "" {
		if err := applyChartFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyChartFile overlays per-unit limits from a YAML file
func applyChartFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read chart config: %w", err)
	}

	var file chartFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse chart config: %w", err)
	}

	for raw, limit := range file.Limits {
		unit, err := aggregate.ParseUnit(raw)
		if err != nil {
			return fmt.Errorf("chart config: %w", err)
		}
		cfg.Display.ChartLimits[unit] = limit
	}
	if file.StatsDays > 0 {
		cfg.Display.StatsDays = file.StatsDays
	}
	return nil
}

// validate checks for required variables
func validate(cfg *Config) error {
	if cfg.DB.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Polling.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if cfg.Polling.StaleTime < 0 {
		return fmt.Errorf("POLL_STALE_TIME must not be negative")
	}
	for unit, limit := range cfg.Display.ChartLimits {
		if limit < 0 {
			return fmt.Errorf("chart limit for %s must not be negative", unit)
		}
	}
	return nil
}

// IsDevelopment reports whether the server runs with development defaults
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Helper to get env var with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper to get env var as int
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, valueStr, err)
	}
	return d, nil
}

func copyLimits(src map[aggregate.Unit]int) map[aggregate.Unit]int {
	dst := make(map[aggregate.Unit]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
