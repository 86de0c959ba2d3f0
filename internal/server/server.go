// Package server wires the application together: storage backend, services,
// handlers, middleware, and routes, plus the server lifecycle.
//
// This is the composition root. Every dependency is constructed here and
// injected downward; nothing below this package reaches for globals.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/propsdb/internal/assets"
	"github.com/sakif/propsdb/internal/auth"
	"github.com/sakif/propsdb/internal/config"
	"github.com/sakif/propsdb/internal/handler"
	"github.com/sakif/propsdb/internal/middleware"
	"github.com/sakif/propsdb/internal/repository"
	"github.com/sakif/propsdb/internal/repository/postgres"
	"github.com/sakif/propsdb/internal/repository/sqlite"
	"github.com/sakif/propsdb/internal/service"
)

// Server owns the router, the storage backend, and everything wired to
// them. The store is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
}

// New assembles the full dependency chain:
//
//	store (sqlite or postgres, chosen by DATABASE_URL)
//	  → services (auth, items) with the asset store
//	    → handlers
//	      → routes
//
// The provider registry is built by main and passed in so that tests can
// supply fake providers.
func New(cfg *config.Config, providers *auth.Registry, logger *slog.Logger) (*Server, error) {
	store, err := openStore(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(providers); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks the storage backend from the URL scheme. postgres:// and
// postgresql:// open a connection pool; anything else is a SQLite file path.
func openStore(ctx context.Context, databaseURL string) (repository.Store, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgres.Open(ctx, databaseURL)
	}
	return sqlite.Open(databaseURL)
}

// setupRoutes configures middleware and the route table.
//
//	GET    /                      → app shell (HTML)
//	GET    /login/{provider}      → start OAuth flow (redirect)
//	GET    /authorize/{provider}  → OAuth callback (redirect)
//	GET    /uploads/*             → stored item images
//	GET    /api/current-user      → session probe (always 200)
//	GET    /api/items             → list/search listings (public)
//	POST   /api/items             → create listing (auth + CSRF)
//	PUT    /api/items/{id}        → update listing (auth + CSRF)
//	DELETE /api/items/{id}        → delete listing (auth + CSRF)
//	POST   /api/logout            → clear session (CSRF)
func (s *Server) setupRoutes(providers *auth.Registry) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	sessions, err := auth.NewSessionService(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating session service: %w", err)
	}

	assetStore, err := assets.NewStore(s.config.UploadDir)
	if err != nil {
		return fmt.Errorf("creating asset store: %w", err)
	}

	authService := service.NewAuthService(s.store, sessions, s.logger)
	itemService := service.NewItemService(s.store, assetStore, s.logger)

	authHandler := handler.NewAuthHandler(providers, authService, s.config.SessionCookieSecure, s.logger)
	itemHandler := handler.NewItemHandler(itemService, s.logger)

	homeHandler, err := handler.NewHomeHandler(s.config.TemplateDir, s.logger)
	if err != nil {
		return fmt.Errorf("creating home handler: %w", err)
	}

	// Pages and OAuth flow. The home page needs the session (if any) to
	// embed the CSRF token.
	s.router.With(auth.OptionalAuth(sessions)).Get("/", homeHandler.HandleHome)
	s.router.Get("/login/{provider}", authHandler.HandleLogin)
	s.router.Get("/authorize/{provider}", authHandler.HandleCallback)

	// Uploaded images are plain static files under their generated names.
	// filesOnly keeps http.FileServer from producing a directory listing
	// that would enumerate every stored filename.
	fileServer := http.FileServer(filesOnly{http.Dir(assetStore.Dir())})
	s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	s.router.Route("/api", func(r chi.Router) {
		if len(s.config.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   s.config.CORSOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}

		// Public reads. OptionalAuth lets is_owner and current-user reflect
		// a session without requiring one.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(sessions))
			r.Get("/items", itemHandler.HandleList)
			r.Get("/current-user", authHandler.HandleCurrentUser)
		})

		// Logout only needs CSRF: the handler clears the cookie whether or
		// not the session still validates.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(sessions))
			r.Use(auth.RequireCSRF())
			r.Post("/logout", authHandler.HandleLogout)
		})

		// Mutations require a logged-in user and a matching CSRF token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(sessions))
			r.Use(auth.RequireCSRF())
			r.Post("/items", itemHandler.HandleCreate)
			r.Put("/items/{id}", itemHandler.HandleUpdate)
			r.Delete("/items/{id}", itemHandler.HandleDelete)
		})
	})

	return nil
}

// filesOnly wraps an http.FileSystem and answers "not found" for
// directories, so GET /uploads/ serves a 404 instead of a listing.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

// Start runs the HTTP server until a shutdown signal arrives, then drains
// in-flight requests and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.BaseURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Router exposes the assembled chi router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
