package config

import (
	"time"

	"github.com/phrazzld/lexis/internal/domain/srs"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL runs the engine on the in-memory store.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"omitempty,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
	// TokenLifetime is the lifetime of tokens issued by the server tooling.
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// EngineConfig contains the spaced repetition engine settings.
type EngineConfig struct {
	// Algorithm selects the decay model: "halflife" or "sm2".
	Algorithm       string  `mapstructure:"algorithm" validate:"required,oneof=halflife sm2"`
	InitialHalfLife float64 `mapstructure:"initial_half_life" validate:"gt=0"`
	MinHalfLife     float64 `mapstructure:"min_half_life" validate:"gt=0"`
	MaxHalfLife     float64 `mapstructure:"max_half_life" validate:"gtfield=MinHalfLife"`
	ReviewThreshold float64 `mapstructure:"review_threshold" validate:"gt=0,lt=1"`
	// Half-life thresholds, in days, for the REVIEWING and MASTERED tiers.
	ReviewingThreshold float64 `mapstructure:"reviewing_threshold" validate:"gt=0"`
	MasteredThreshold  float64 `mapstructure:"mastered_threshold" validate:"gtfield=ReviewingThreshold"`

	AsyncTopicRefresh bool          `mapstructure:"async_topic_refresh"`
	RefreshWorkers    int           `mapstructure:"refresh_workers" validate:"gte=1"`
	RefreshQueueSize  int           `mapstructure:"refresh_queue_size" validate:"gte=1"`
	StoreTimeout      time.Duration `mapstructure:"store_timeout" validate:"gt=0"`
	LockShards        int           `mapstructure:"lock_shards" validate:"gte=1"`

	XPPerCorrect   int `mapstructure:"xp_per_correct" validate:"gte=0"`
	XPPerIncorrect int `mapstructure:"xp_per_incorrect" validate:"gte=0"`
	XPMasteryBonus int `mapstructure:"xp_mastery_bonus" validate:"gte=0"`
}

// SRSParams converts the engine settings into algorithm parameter overrides.
func (e EngineConfig) SRSParams() srs.ParamsConfig {
	return srs.ParamsConfig{
		InitialHalfLife:    e.InitialHalfLife,
		MinHalfLife:        e.MinHalfLife,
		MaxHalfLife:        e.MaxHalfLife,
		ReviewThreshold:    e.ReviewThreshold,
		ReviewingThreshold: e.ReviewingThreshold,
		MasteredThreshold:  e.MasteredThreshold,
	}
}
