package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig
	Database   PostgresConfig
	Redis      RedisConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig `mapstructure:"ratelimit"`
	Retention  RetentionConfig
	Partner    PartnerConfig
	Monitoring MonitoringConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig configures token issuance. Algorithm must name an HMAC
// signing method (HS256, HS384, HS512).
type AuthConfig struct {
	Secret    string        `mapstructure:"secret"`
	Algorithm string        `mapstructure:"algorithm"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// RateLimitConfig configures the failed-authentication limiter. The
// window is refreshed on every recorded failure, not fixed from the
// first one.
type RateLimitConfig struct {
	Threshold int           `mapstructure:"threshold"`
	Window    time.Duration `mapstructure:"window"`
}

// RetentionConfig drives the rollup engine and the history append gate.
type RetentionConfig struct {
	HorizonDays        int           `mapstructure:"horizon_days"`
	HistoryMinInterval time.Duration `mapstructure:"history_min_interval"`
	RollupWindow       time.Duration `mapstructure:"rollup_window"`
	RollupSchedule     string        `mapstructure:"rollup_schedule"`
	RollupEnabled      bool          `mapstructure:"rollup_enabled"`
}

type PartnerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MonitoringConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("GREENMIND")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Load config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	// Auth defaults
	viper.SetDefault("auth.algorithm", "HS256")
	viper.SetDefault("auth.token_ttl", "15m")

	// Rate limit defaults
	viper.SetDefault("ratelimit.threshold", 5)
	viper.SetDefault("ratelimit.window", "15m")

	// Retention defaults
	viper.SetDefault("retention.horizon_days", 7)
	viper.SetDefault("retention.history_min_interval", "1h")
	viper.SetDefault("retention.rollup_window", "24h")
	viper.SetDefault("retention.rollup_schedule", "0 3 * * *")
	viper.SetDefault("retention.rollup_enabled", true)

	// Partner defaults
	viper.SetDefault("partner.timeout", "10s")

	// Monitoring defaults
	viper.SetDefault("monitoring.log_level", "info")
}

func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required")
	}
	if config.Partner.BaseURL == "" {
		return fmt.Errorf("partner base URL is required")
	}
	if config.RateLimit.Threshold <= 0 {
		return fmt.Errorf("rate limit threshold must be positive")
	}
	if config.Retention.HorizonDays <= 0 {
		return fmt.Errorf("retention horizon must be positive")
	}
	return nil
}
