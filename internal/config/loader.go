package config

import (
	"log"

	"github.com/spf13/viper"

	"github.com/rpattn/sprintmetrics/internal/db"
	"github.com/rpattn/sprintmetrics/internal/events"
)

// Config aggregates the settings the engine needs at startup.
type Config struct {
	Database db.Config
	Redis    events.RedisConfig
	// OutboxSize bounds the in-memory event queue between the mutation
	// path and the publisher.
	OutboxSize int
}

// Load reads config.yaml from configPath, falling back to defaults, with
// environment overrides like SPRINT_DATABASE_HOST or SPRINT_REDIS_ADDR.
func Load(configPath string) (Config, error) {
	// Start with defaults
	cfg := Config{
		Database:   db.DefaultConfig(),
		Redis:      events.DefaultRedisConfig(),
		OutboxSize: 256,
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv() // allow environment overrides
	v.SetEnvPrefix("SPRINT")

	// Map nested keys to flat env vars
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("redis.addr")
	v.BindEnv("redis.password")
	v.BindEnv("redis.db")
	v.BindEnv("redis.namespace")
	v.BindEnv("outbox.size")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		log.Println("No config.yaml found, using defaults and env vars")
	} else {
		log.Println("Loaded config.yaml")
	}

	// Override defaults if values exist
	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("redis.addr") {
		cfg.Redis.Addr = v.GetString("redis.addr")
	}
	if v.IsSet("redis.password") {
		cfg.Redis.Password = v.GetString("redis.password")
	}
	if v.IsSet("redis.db") {
		cfg.Redis.DB = v.GetInt("redis.db")
	}
	if v.IsSet("redis.namespace") {
		cfg.Redis.Namespace = v.GetString("redis.namespace")
	}
	if v.IsSet("outbox.size") {
		cfg.OutboxSize = v.GetInt("outbox.size")
	}

	return cfg, nil
}
