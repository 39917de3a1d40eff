package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "LEXIS"

// setDefaults registers every key with a default so that viper's automatic
// environment binding picks up variables for keys absent from config files.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime", time.Hour)

	v.SetDefault("engine.algorithm", "halflife")
	v.SetDefault("engine.initial_half_life", 1.0)
	v.SetDefault("engine.min_half_life", 1.0)
	v.SetDefault("engine.max_half_life", 365.0)
	v.SetDefault("engine.review_threshold", 0.5)
	v.SetDefault("engine.reviewing_threshold", 7.0)
	v.SetDefault("engine.mastered_threshold", 30.0)
	v.SetDefault("engine.async_topic_refresh", false)
	v.SetDefault("engine.refresh_workers", 2)
	v.SetDefault("engine.refresh_queue_size", 100)
	v.SetDefault("engine.store_timeout", 5*time.Second)
	v.SetDefault("engine.lock_shards", 256)
	v.SetDefault("engine.xp_per_correct", 10)
	v.SetDefault("engine.xp_per_incorrect", 2)
	v.SetDefault("engine.xp_mastery_bonus", 50)
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return load(viper.New())
}

// LoadFile is like Load but reads the given config file instead of searching
// for config.yaml. A missing file is an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
