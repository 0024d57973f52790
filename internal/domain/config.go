package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Analysis ServiceConfig `mapstructure:"analysis"`
	Report   ServiceConfig `mapstructure:"report"`
	Cache    CacheConfig   `mapstructure:"cache"`
	History  HistoryConfig `mapstructure:"history"`
	Server   ServerConfig  `mapstructure:"server"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Export   ExportConfig  `mapstructure:"export"`
}

// ServiceConfig represents an external HTTP service endpoint
type ServiceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"` // requests per second
}

// CacheConfig represents analysis response cache configuration
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	MaxItems int           `mapstructure:"max_items"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"` // optional second tier
}

// HistoryConfig selects where completed analyses are recorded
type HistoryConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite", "postgres" or "none"
	DSN    string `mapstructure:"dsn"`
}

// ServerConfig represents the local HTTP gateway configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// ExportConfig represents local JSON/PDF export configuration
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}
