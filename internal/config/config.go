package config

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/diabetes-o-meter/internal/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// DIABETES_O_METER_SERVER_PORT
const EnvPrefix = "DIABETES_O_METER"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Model     ModelConfig     `mapstructure:"model"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	EnableHSTS   bool          `mapstructure:"enable_hsts"`
}

// DatasetConfig locates the training data
type DatasetConfig struct {
	Path string `mapstructure:"path"`
}

// ModelConfig controls how built models are reused
type ModelConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// StorageConfig holds model persistence configuration
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DataDir string `mapstructure:"data_dir"`
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
	Burst             int    `mapstructure:"burst"`
	RedisAddr         string `mapstructure:"redis_addr"`
	RedisPassword     string `mapstructure:"redis_password"`
	RedisDB           int    `mapstructure:"redis_db"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from an optional file and environment
// variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.NewConfigurationError("failed to read config file "+path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfigurationError("failed to unmarshal config", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:8080"})
	v.SetDefault("server.enable_hsts", false)

	v.SetDefault("dataset.path", "diabetes.csv")

	v.SetDefault("model.cache_ttl", "5m")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.data_dir", "./data")

	v.SetDefault("ratelimit.requests_per_minute", 60)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("ratelimit.redis_addr", "")
	v.SetDefault("ratelimit.redis_password", "")
	v.SetDefault("ratelimit.redis_db", 0)

	v.SetDefault("logging.level", "info")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalidf("server.port must be between 1 and 65535")
	}
	if c.Server.ReadTimeout <= 0 {
		return invalidf("server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return invalidf("server.write_timeout must be positive")
	}

	if strings.TrimSpace(c.Dataset.Path) == "" {
		return invalidf("dataset.path is required")
	}

	if c.Model.CacheTTL < 0 {
		return invalidf("model.cache_ttl must not be negative")
	}

	if c.Storage.Enabled && c.Storage.DataDir == "" {
		return invalidf("storage.data_dir is required when storage is enabled")
	}

	if c.RateLimit.RequestsPerMinute < 1 {
		return invalidf("ratelimit.requests_per_minute must be at least 1")
	}
	if c.RateLimit.Burst < 1 {
		return invalidf("ratelimit.burst must be at least 1")
	}
	if c.RateLimit.RedisDB < 0 {
		return invalidf("ratelimit.redis_db must not be negative")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return invalidf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

func invalidf(format string, args ...any) error {
	return apperrors.NewConfigurationError(fmt.Sprintf(format, args...), nil)
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
