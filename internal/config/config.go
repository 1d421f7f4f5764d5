// Package config provides configuration management for the keiba engine.
package config

import (
	"fmt"
	"sort"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Inference  InferenceConfig  `mapstructure:"inference" validate:"required"`
	OddsFeed   OddsFeedConfig   `mapstructure:"oddsfeed" validate:"required"`
	Simulation SimulationConfig `mapstructure:"simulation" validate:"required"`
	Portfolio  PortfolioConfig  `mapstructure:"portfolio" validate:"required"`
	RaceDay    RaceDayConfig    `mapstructure:"raceday" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Health     HealthConfig     `mapstructure:"health" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// InferenceConfig represents the model inference service configuration
type InferenceConfig struct {
	URL             string `mapstructure:"url" validate:"required,url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts   int    `mapstructure:"retry_attempts" validate:"gte=0"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	ModelVersion    string `mapstructure:"model_version" validate:"required"`
	APIKey          string `mapstructure:"api_key"`
}

// OddsFeedConfig represents the odds provider configuration
type OddsFeedConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"required,url"`
	StreamURL         string  `mapstructure:"stream_url" validate:"required"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"required,gt=0"`
	Burst             int     `mapstructure:"burst" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	FailureThreshold  int     `mapstructure:"failure_threshold" validate:"required,gt=0"`
	APIKey            string  `mapstructure:"api_key"`
}

// PlaceRangeRule maps a minimum field size to the number of paid places
type PlaceRangeRule struct {
	MinFieldSize int `mapstructure:"min_field_size" validate:"required,gt=0"`
	PaidPlaces   int `mapstructure:"paid_places" validate:"required,min=1,max=3"`
}

// SimulationConfig represents Monte Carlo simulation configuration.
// Seed is a pointer so that zero is an acceptable explicit seed while
// an omitted seed still fails validation.
type SimulationConfig struct {
	Iterations int              `mapstructure:"iterations" validate:"required,gt=0"`
	Seed       *int64           `mapstructure:"seed" validate:"required"`
	PlaceRange []PlaceRangeRule `mapstructure:"place_range" validate:"omitempty,dive"`
}

// PortfolioConfig represents stake sizing configuration
type PortfolioConfig struct {
	KellyFraction          float64  `mapstructure:"kelly_fraction" validate:"required,gt=0,lte=1"`
	EVThreshold            float64  `mapstructure:"ev_threshold" validate:"gte=0"`
	MaxStakeFractionPerBet float64  `mapstructure:"max_stake_fraction_per_bet" validate:"required,gt=0,lte=1"`
	EnabledBetTypes        []string `mapstructure:"enabled_bet_types" validate:"required,min=1,bettypes"`
	BetUnit                int64    `mapstructure:"bet_unit" validate:"required,gt=0"`
	DailyBudget            float64  `mapstructure:"daily_budget" validate:"required,gt=0"`
}

// RaceDayConfig represents race-day service configuration
type RaceDayConfig struct {
	OddsPollIntervalSeconds int `mapstructure:"odds_poll_interval_seconds" validate:"required,gt=0"`
	PrePostWindowMinutes    int `mapstructure:"pre_post_window_minutes" validate:"required,gt=0"`
	Workers                 int `mapstructure:"workers" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health server configuration
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// InferenceTimeout returns the inference request timeout as a duration
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

// PrePostWindow returns the near-post processing window as a duration
func (c *Config) PrePostWindow() time.Duration {
	return time.Duration(c.RaceDay.PrePostWindowMinutes) * time.Minute
}

// PlaceRangePolicy converts the configured place-range rules into a
// field-size to paid-places function. With no rules configured it
// returns nil so callers fall back to the built-in default.
func (c *SimulationConfig) PlaceRangePolicy() func(fieldSize int) int {
	if len(c.PlaceRange) == 0 {
		return nil
	}

	rules := make([]PlaceRangeRule, len(c.PlaceRange))
	copy(rules, c.PlaceRange)
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].MinFieldSize > rules[j].MinFieldSize
	})

	return func(fieldSize int) int {
		for _, rule := range rules {
			if fieldSize >= rule.MinFieldSize {
				return rule.PaidPlaces
			}
		}
		return 1
	}
}
