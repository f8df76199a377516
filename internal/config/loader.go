// Package config provides configuration management for the lay engine.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")

	// Set environment variable prefix
	v.SetEnvPrefix("LAY_ENGINE")

	// Enable automatic binding of environment variables
	v.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		// Expand environment variables in the configuration (${VAR} syntax)
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// If file doesn't exist, continue with defaults and environment variables

	// Unmarshal configuration into Config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lay-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("betfair.api_url", "https://api.betfair.com/exchange/betting/json-rpc/v1")
	v.SetDefault("betfair.account_api_url", "https://api.betfair.com/exchange/account/json-rpc/v1")
	v.SetDefault("betfair.login_url", "https://identitysso.betfair.com/api/login")
	v.SetDefault("betfair.keepalive_url", "https://identitysso.betfair.com/api/keepAlive")
	v.SetDefault("betfair.timeout_seconds", 10)
	v.SetDefault("betfair.rate_limit", 10.0)

	v.SetDefault("engine.dry_run", true)
	v.SetDefault("engine.poll_interval_seconds", 30)
	v.SetDefault("engine.process_window_minutes", 12)
	v.SetDefault("engine.countries", []string{"GB", "IE"})
	v.SetDefault("engine.point_value", 1)
	v.SetDefault("engine.min_odds", 2.0)
	v.SetDefault("engine.max_lay_odds", 50.0)

	v.SetDefault("store.local_path", "data/engine_state.json")
	v.SetDefault("store.s3_key", "lay-engine/engine_state.json")

	v.SetDefault("settlement.schedule", "*/10 * * * *")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("health.port", 8081)
}
