// Package config loads application configuration from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration.
//
// DATABASE_URL selects the storage backend by scheme: postgres:// or
// postgresql:// opens a networked Postgres pool, anything else is treated as
// a SQLite file path. SESSION_SECRET signs session cookies and must be a
// long random string (openssl rand -hex 32).
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:"data/props.db"`
	UploadDir   string `envconfig:"UPLOAD_DIR" default:"uploads"`
	TemplateDir string `envconfig:"TEMPLATE_DIR" default:"web/templates"`

	SessionSecret       string `envconfig:"SESSION_SECRET" required:"true"`
	SessionCookieSecure bool   `envconfig:"SESSION_COOKIE_SECURE" default:"false"`

	// Allowed cross-origin callers for /api routes. Empty disables CORS.
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`

	// BaseURL is the externally visible origin used to build OAuth callback
	// URLs, e.g. https://props.example.com. Defaults to localhost.
	BaseURL string `envconfig:"BASE_URL" default:""`

	GoogleClientID       string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `envconfig:"GOOGLE_CLIENT_SECRET"`
	DiscordClientID      string `envconfig:"DISCORD_CLIENT_ID"`
	DiscordClientSecret  string `envconfig:"DISCORD_CLIENT_SECRET"`
	FacebookClientID     string `envconfig:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `envconfig:"FACEBOOK_CLIENT_SECRET"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	return &cfg, nil
}
