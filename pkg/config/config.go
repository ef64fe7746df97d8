// Package config loads application configuration from, in order of
// precedence: command-line flags, environment variables (SETTLEFLOW_
// prefix), an optional config file, and built-in defaults. A .env file in
// the working directory is honored if present.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Log    LogConfig
	Engine EngineConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	API    APIConfig
}

// LogConfig holds logging-related configuration
type LogConfig struct {
	Level       string
	Environment string
}

// EngineConfig holds processing-engine configuration
type EngineConfig struct {
	// QueueSize is the capacity of the bounded queue between the
	// ingestion stage and the processing stage.
	QueueSize int
	// Store selects the backing store: "memory" or "redis".
	Store string
}

// RedisConfig holds Redis-related configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// KafkaConfig holds Kafka-related configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// APIConfig holds HTTP API configuration
type APIConfig struct {
	Port               string
	CORSAllowedOrigins []string
}

// LoadOptions controls how configuration is loaded.
type LoadOptions struct {
	// ConfigFile is an explicit config file path. Empty means no file.
	ConfigFile string
	// EnvPrefix is the prefix for environment variables.
	EnvPrefix string
	// Flags, when non-nil, is a parsed flag set bound over the file/env
	// values with the highest precedence.
	Flags *pflag.FlagSet
}

// DefaultLoadOptions returns the default load options.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		EnvPrefix: "SETTLEFLOW",
	}
}

// Load loads configuration with default options.
func Load() (*Config, error) {
	return LoadWithOptions(DefaultLoadOptions())
}

// LoadWithOptions loads configuration according to opts.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// A missing .env is fine; only existence is probed here.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(opts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	if opts.Flags != nil {
		if err := v.BindPFlags(opts.Flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := &Config{
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Environment: v.GetString("log.environment"),
		},
		Engine: EngineConfig{
			QueueSize: v.GetInt("engine.queue_size"),
			Store:     v.GetString("engine.store"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
			GroupID: v.GetString("kafka.group_id"),
		},
		API: APIConfig{
			Port:               v.GetString("api.port"),
			CORSAllowedOrigins: v.GetStringSlice("api.cors_allowed_origins"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.environment", "development")
	v.SetDefault("engine.queue_size", 1024)
	v.SetDefault("engine.store", "memory")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "transactions")
	v.SetDefault("kafka.group_id", "settleflow")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.cors_allowed_origins", []string{"http://localhost:3000"})
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	if c.Engine.QueueSize <= 0 {
		return fmt.Errorf("engine queue size must be positive, got %d", c.Engine.QueueSize)
	}

	switch c.Engine.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid store %q (want memory or redis)", c.Engine.Store)
	}

	if c.Engine.Store == "redis" && c.Redis.Address == "" {
		return fmt.Errorf("redis store selected but no redis address configured")
	}

	return nil
}
