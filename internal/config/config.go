// Package config provides client and daemon configuration loading.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from file or environment variables.
type Config struct {
	APIBaseURL   string `mapstructure:"API_BASE_URL"`
	SocketURL    string `mapstructure:"SOCKET_URL"`
	SocketPath   string `mapstructure:"SOCKET_PATH"`
	AuthToken    string `mapstructure:"AUTH_TOKEN"`
	UserID       string `mapstructure:"USER_ID"`
	UserType     string `mapstructure:"USER_TYPE"`
	BusinessID   string `mapstructure:"BUSINESS_ID"`
	Port         string `mapstructure:"PORT"`
	Env          string `mapstructure:"APP_ENV"`
	RedisURL     string `mapstructure:"REDIS_URL"`
	ArchiveDSN   string `mapstructure:"ARCHIVE_DSN"`
	FeatureFlags string `mapstructure:"FEATURE_FLAGS"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`

	InboxCacheTTL        time.Duration `mapstructure:"INBOX_CACHE_TTL"`
	InboxResyncInterval  time.Duration `mapstructure:"INBOX_RESYNC_INTERVAL"`
	HTTPTimeout          time.Duration `mapstructure:"HTTP_TIMEOUT"`
	TypingDebounce       time.Duration `mapstructure:"TYPING_DEBOUNCE"`
	RoomLeaveGrace       time.Duration `mapstructure:"ROOM_LEAVE_GRACE"`
	ReconnectMaxInterval time.Duration `mapstructure:"RECONNECT_MAX_INTERVAL"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// setDefaults registers every key. AutomaticEnv only feeds Unmarshal for keys
// viper already knows about.
func setDefaults(v *viper.Viper) {
	v.SetDefault("API_BASE_URL", "http://localhost:5000")
	v.SetDefault("SOCKET_URL", "")
	v.SetDefault("SOCKET_PATH", "/socket.io/")
	v.SetDefault("AUTH_TOKEN", "")
	v.SetDefault("USER_ID", "")
	v.SetDefault("USER_TYPE", "user")
	v.SetDefault("BUSINESS_ID", "")
	v.SetDefault("PORT", "8390")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ARCHIVE_DSN", "")
	v.SetDefault("FEATURE_FLAGS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("INBOX_CACHE_TTL", "2m")
	v.SetDefault("INBOX_RESYNC_INTERVAL", "5m")
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("TYPING_DEBOUNCE", "1500ms")
	v.SetDefault("ROOM_LEAVE_GRACE", "3s")
	v.SetDefault("RECONNECT_MAX_INTERVAL", "30s")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

// LoadConfig loads configuration from .env, config.yml and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("$HOME/.hoodlink")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	env := v.GetString("APP_ENV")
	if env != "" && env != "development" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) normalize() {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.UserType = strings.ToLower(strings.TrimSpace(c.UserType))
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.SocketURL == "" {
		c.SocketURL = c.APIBaseURL
	}
	if c.SocketPath == "" {
		c.SocketPath = "/socket.io/"
	}
}

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.UserType != "" && c.UserType != "user" && c.UserType != "business" {
		return fmt.Errorf("USER_TYPE must be user or business, got %q", c.UserType)
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return errors.New("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}

	if c.IsProduction() {
		if c.AuthToken == "" {
			return errors.New("AUTH_TOKEN is required in production")
		}
		if u.Scheme == "http" {
			return errors.New("API_BASE_URL must use https when sending AUTH_TOKEN in production")
		}
		if c.RedisURL == "" {
			log.Println("WARNING: REDIS_URL is empty in production. Inbox warm start is disabled.")
		}
	}

	return nil
}
