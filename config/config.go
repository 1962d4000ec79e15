package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pozitronik/viscrapper/internal/types"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	Backend BackendConfig
	Log     LogConfig
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RatePerClient  float64  `mapstructure:"rate_per_client"`
	RateBurst      int      `mapstructure:"rate_burst"`
}

// EngineConfig holds extraction engine timing and browser configuration
type EngineConfig struct {
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	DiscoveryTimeout  time.Duration `mapstructure:"discovery_timeout"`
	DiscoveryInterval time.Duration `mapstructure:"discovery_interval"`
	GraceWindow       time.Duration `mapstructure:"grace_window"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestDelay      time.Duration `mapstructure:"request_delay"`
	Headless          bool          `mapstructure:"headless"`
	UserAgent         string        `mapstructure:"user_agent"`
}

// BackendConfig holds downstream store configuration
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"` // empty means in-memory store
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/viscrapper/")

	// Environment variable settings
	v.SetEnvPrefix("VISCRAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	defaults := types.DefaultConfig()

	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})
	v.SetDefault("server.rate_per_client", 5.0)
	v.SetDefault("server.rate_burst", 10)

	// Engine defaults
	v.SetDefault("engine.settle_delay", defaults.SettleDelay)
	v.SetDefault("engine.discovery_timeout", defaults.DiscoveryTimeout)
	v.SetDefault("engine.discovery_interval", defaults.DiscoveryInterval)
	v.SetDefault("engine.grace_window", defaults.GraceWindow)
	v.SetDefault("engine.timeout", defaults.Timeout)
	v.SetDefault("engine.max_retries", defaults.MaxRetries)
	v.SetDefault("engine.request_delay", defaults.RequestDelay)
	v.SetDefault("engine.headless", defaults.UseHeadlessBrowser)
	v.SetDefault("engine.user_agent", defaults.UserAgent)

	// Backend defaults
	v.SetDefault("backend.base_url", "")

	// Log defaults
	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Engine.SettleDelay <= 0 {
		return fmt.Errorf("engine settle delay must be positive, got: %s", config.Engine.SettleDelay)
	}

	if config.Engine.DiscoveryTimeout < config.Engine.DiscoveryInterval {
		return fmt.Errorf("discovery timeout %s is shorter than the polling interval %s",
			config.Engine.DiscoveryTimeout, config.Engine.DiscoveryInterval)
	}

	if config.Engine.GraceWindow < 0 {
		return fmt.Errorf("grace window must not be negative, got: %s", config.Engine.GraceWindow)
	}

	if config.Engine.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got: %d", config.Engine.MaxRetries)
	}

	if config.Server.RatePerClient <= 0 {
		return fmt.Errorf("rate per client must be positive, got: %f", config.Server.RatePerClient)
	}

	if config.Server.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1, got: %d", config.Server.RateBurst)
	}

	return nil
}

// EngineConfig maps the loaded configuration onto the engine's Config.
func (c *Config) EngineConfig() *types.Config {
	return &types.Config{
		SettleDelay:        c.Engine.SettleDelay,
		DiscoveryTimeout:   c.Engine.DiscoveryTimeout,
		DiscoveryInterval:  c.Engine.DiscoveryInterval,
		GraceWindow:        c.Engine.GraceWindow,
		Timeout:            c.Engine.Timeout,
		MaxRetries:         c.Engine.MaxRetries,
		RequestDelay:       c.Engine.RequestDelay,
		UseHeadlessBrowser: c.Engine.Headless,
		UserAgent:          c.Engine.UserAgent,
	}
}
