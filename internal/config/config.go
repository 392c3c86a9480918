package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret = "change-me-jwt-secret"
	defaultPort      = "8080"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	// Redis backs the geocode cache. Empty address disables caching.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	GoogleAPIKey string `mapstructure:"GOOGLE_API_KEY"`

	UploadDir     string `mapstructure:"UPLOAD_DIR"`
	UploadURLBase string `mapstructure:"UPLOAD_URL_BASE"`

	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	NavIdleTimeout    time.Duration `mapstructure:"NAV_IDLE_TIMEOUT"`
	WSEventsPerSecond float64       `mapstructure:"WS_EVENTS_PER_SECOND"`
	ChatHistoryLimit  int           `mapstructure:"CHAT_HISTORY_LIMIT"`

	// Read notifications older than this are purged by cmd/cleanup.
	NotificationRetention time.Duration `mapstructure:"NOTIFICATION_RETENTION"`
}

// Load reads .env (if present), then the environment, then an optional
// config.yaml, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", defaultPort)
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DATABASE_URL", "homecare.db")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GOOGLE_API_KEY", "")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("UPLOAD_URL_BASE", "/static/uploads")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("NAV_IDLE_TIMEOUT", "10m")
	v.SetDefault("WS_EVENTS_PER_SECOND", 20)
	v.SetDefault("CHAT_HISTORY_LIMIT", 100)
	v.SetDefault("NOTIFICATION_RETENTION", "2160h")
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.AppPort) == "" {
		return fmt.Errorf("APP_PORT must not be empty")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if c.NavIdleTimeout <= 0 {
		return fmt.Errorf("NAV_IDLE_TIMEOUT must be > 0")
	}
	if c.WSEventsPerSecond <= 0 {
		return fmt.Errorf("WS_EVENTS_PER_SECOND must be > 0")
	}
	if c.ChatHistoryLimit <= 0 {
		return fmt.Errorf("CHAT_HISTORY_LIMIT must be > 0")
	}
	if c.NotificationRetention < 0 {
		return fmt.Errorf("NOTIFICATION_RETENTION must not be negative")
	}

	if c.IsProdLike() {
		if isEmptyOrDefault(c.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
	}
	return nil
}

func (c *Config) IsProdLike() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "prod" || env == "production" || env == "release"
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
