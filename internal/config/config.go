// Package config loads server settings from .env, an optional config.yaml
// and the environment, in increasing order of precedence.
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

const devJWTSecret = "teamhealth-dev-secret-change-me"

type Config struct {
	HTTPPort           string
	RedisAddr          string
	GraphQLEndpoint    string
	PublicURL          string
	JWTSecret          string
	SessionTTL         time.Duration
	BackendTimeout     time.Duration
	BackendMaxRetries  int
	CORSAllowedOrigins []string
}

// Load reads the configuration. A missing .env or config.yaml is not an
// error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] loaded .env")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("http_port", "8080")
	v.SetDefault("redis_uri", "localhost:6379")
	v.SetDefault("graphql_endpoint", "http://localhost:4000/graphql")
	v.SetDefault("public_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("session_ttl", "24h")
	v.SetDefault("backend_timeout", "15s")
	v.SetDefault("backend_max_retries", 3)
	v.SetDefault("cors_allowed_origins", "*")

	_ = v.BindEnv("http_port", "HTTP_PORT", "PORT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		log.Printf("[Config] using %s", v.ConfigFileUsed())
	}

	cfg := &Config{
		HTTPPort:          v.GetString("http_port"),
		RedisAddr:         strings.TrimPrefix(v.GetString("redis_uri"), "redis://"),
		GraphQLEndpoint:   v.GetString("graphql_endpoint"),
		PublicURL:         strings.TrimRight(v.GetString("public_url"), "/"),
		JWTSecret:         v.GetString("jwt_secret"),
		SessionTTL:        v.GetDuration("session_ttl"),
		BackendTimeout:    v.GetDuration("backend_timeout"),
		BackendMaxRetries: v.GetInt("backend_max_retries"),
	}
	for _, o := range strings.Split(v.GetString("cors_allowed_origins"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:" + cfg.HTTPPort
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
		log.Println("[Config] Warning: JWT_SECRET not set, using development secret")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values Load cannot default
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("http port must be set")
	}
	if u, err := url.Parse(c.GraphQLEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid GRAPHQL_ENDPOINT %q", c.GraphQLEndpoint)
	}
	if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid PUBLIC_URL %q", c.PublicURL)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %v", c.SessionTTL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %v", c.BackendTimeout)
	}
	if c.BackendMaxRetries < 1 {
		return fmt.Errorf("BACKEND_MAX_RETRIES must be at least 1, got %d", c.BackendMaxRetries)
	}
	return nil
}
