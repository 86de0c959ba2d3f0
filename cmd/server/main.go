// Package main is the entry point for the props database server.
//
// main stays minimal: load config, build the logger and the OAuth provider
// registry, hand everything to internal/server. All real logic lives below
// the server package.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/propsdb/internal/auth"
	"github.com/sakif/propsdb/internal/config"
	"github.com/sakif/propsdb/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	// A SQLite path needs its parent directory to exist before Open.
	if !strings.HasPrefix(cfg.DatabaseURL, "postgres://") && !strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabaseURL), 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", filepath.Dir(cfg.DatabaseURL)),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	providers := buildProviders(cfg, logger)

	srv, err := server.New(cfg, providers, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildProviders registers every OAuth provider that has credentials
// configured. The server runs fine with none, but nobody can log in, so
// that case gets a loud warning.
func buildProviders(cfg *config.Config, logger *slog.Logger) *auth.Registry {
	registry := auth.NewRegistry()
	callback := func(name string) string {
		return cfg.BaseURL + "/authorize/" + name
	}

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		registry.Register(auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, callback("google")))
	}
	if cfg.DiscordClientID != "" && cfg.DiscordClientSecret != "" {
		registry.Register(auth.NewDiscordProvider(cfg.DiscordClientID, cfg.DiscordClientSecret, callback("discord")))
	}
	if cfg.FacebookClientID != "" && cfg.FacebookClientSecret != "" {
		registry.Register(auth.NewFacebookProvider(cfg.FacebookClientID, cfg.FacebookClientSecret, callback("facebook")))
	}

	if names := registry.Names(); len(names) == 0 {
		logger.Warn("no OAuth providers configured — login is unavailable")
	} else {
		logger.Info("OAuth providers registered", slog.Any("providers", names))
	}

	return registry
}

// logLevel maps the LOG_LEVEL setting onto slog levels, defaulting to info
// on anything unrecognised.
func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
