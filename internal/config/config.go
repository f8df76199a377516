// Package config provides configuration management for the lay engine.
package config

import (
	"time"

	"github.com/yourusername/lay-engine/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Betfair    BetfairConfig    `mapstructure:"betfair" validate:"required"`
	Engine     EngineConfig     `mapstructure:"engine" validate:"required"`
	Store      StoreConfig      `mapstructure:"store" validate:"required"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Health     HealthConfig     `mapstructure:"health"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// BetfairConfig represents exchange API configuration
type BetfairConfig struct {
	APIURL         string  `mapstructure:"api_url" validate:"required,url"`
	AccountAPIURL  string  `mapstructure:"account_api_url" validate:"required,url"`
	LoginURL       string  `mapstructure:"login_url" validate:"required,url"`
	KeepAliveURL   string  `mapstructure:"keepalive_url" validate:"required,url"`
	AppKey         string  `mapstructure:"app_key"`
	Username       string  `mapstructure:"username"`
	Password       string  `mapstructure:"password"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
}

// EngineConfig is the boot-time seed for the hot-swappable scheduler
// configuration. Persisted state overrides these values on load.
type EngineConfig struct {
	DryRun               bool     `mapstructure:"dry_run"`
	PollIntervalSeconds  int      `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`
	ProcessWindowMinutes int      `mapstructure:"process_window_minutes" validate:"required,min=1,max=60"`
	Countries            []string `mapstructure:"countries" validate:"required,min=1,countries"`
	PointValue           int      `mapstructure:"point_value" validate:"required,pointvalue"`
	SpreadControlEnabled bool     `mapstructure:"spread_control_enabled"`
	JOFSEnabled          bool     `mapstructure:"jofs_enabled"`
	MinOdds              float64  `mapstructure:"min_odds" validate:"required,gte=1"`
	MaxLayOdds           float64  `mapstructure:"max_lay_odds" validate:"required,gt=1"`
}

// StoreConfig represents the dual-layer persistence configuration
type StoreConfig struct {
	LocalPath string `mapstructure:"local_path" validate:"required"`
	S3Enabled bool   `mapstructure:"s3_enabled"`
	S3Bucket  string `mapstructure:"s3_bucket" validate:"required_if=S3Enabled true"`
	S3Key     string `mapstructure:"s3_key"`
	S3Region  string `mapstructure:"s3_region"`
}

// SettlementConfig represents the cleared-bets sync job configuration
type SettlementConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// HealthConfig represents the health endpoint configuration
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// SecretsConfig points at the AWS Secrets Manager overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// HasExchangeCredentials reports whether live login is possible
func (c *Config) HasExchangeCredentials() bool {
	return c.Betfair.AppKey != "" && c.Betfair.Username != "" && c.Betfair.Password != ""
}

// ExchangeTimeout returns the per-call exchange timeout
func (c *Config) ExchangeTimeout() time.Duration {
	return time.Duration(c.Betfair.TimeoutSeconds) * time.Second
}

// EngineDefaults converts the boot-time engine section into the
// runtime configuration value the scheduler owns.
func (c *Config) EngineDefaults() models.EngineConfig {
	return models.EngineConfig{
		DryRun:               c.Engine.DryRun,
		PollIntervalSeconds:  c.Engine.PollIntervalSeconds,
		ProcessWindowMinutes: c.Engine.ProcessWindowMinutes,
		Countries:            append([]string(nil), c.Engine.Countries...),
		PointValue:           c.Engine.PointValue,
		SpreadControlEnabled: c.Engine.SpreadControlEnabled,
		JOFSEnabled:          c.Engine.JOFSEnabled,
		MinOdds:              c.Engine.MinOdds,
		MaxLayOdds:           c.Engine.MaxLayOdds,
	}
}
