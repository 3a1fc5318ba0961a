// Package server sets up the HTTP server, router, and all route
// definitions. It is the composition root: every repository, service, and
// handler is constructed and wired here, so the dependency graph is
// readable in one place.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	githubactivity "github.com/sakif/gitquest/internal/activity/github"
	"github.com/sakif/gitquest/internal/auth"
	"github.com/sakif/gitquest/internal/handler"
	"github.com/sakif/gitquest/internal/middleware"
	sqliteRepo "github.com/sakif/gitquest/internal/repository/sqlite"
	"github.com/sakif/gitquest/internal/service"
)

// Config holds server configuration, loaded from the environment in
// cmd/server.
type Config struct {
	Port               int
	DBPath             string
	JWTSecret          string
	AdminKeyHash       string // bcrypt hash; empty disables admin routes
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the resources that must be released on
// shutdown (the database connection).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server and wires the whole dependency chain:
//
//	sqlite.DB → repositories (one struct, many interfaces)
//	          → GuildService → AchievementService → SyncService
//	          → handlers → routes
//
// Each layer only receives what it needs; handlers never touch the
// database, services never touch HTTP.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	// Global middleware, in order: request IDs for tracing, real client
	// IPs behind proxies, panic recovery, then our slog request logger.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	githubProvider := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)
	adminGate := auth.NewAdminGate(s.config.AdminKeyHash)

	// Services. The sqlite DB satisfies every repository interface, so it
	// is passed wherever one is needed.
	authService := service.NewAuthService(s.db, tokens, s.logger)
	characterService := service.NewCharacterService(s.db, s.db, s.logger)
	guildService := service.NewGuildService(s.db, s.db, s.logger)
	achievementService := service.NewAchievementService(s.db, s.db, guildService, s.logger)
	guildService.SetAchievementService(achievementService)
	syncService := service.NewSyncService(
		s.db, s.db, s.db,
		githubactivity.NewClient(),
		guildService,
		achievementService,
		s.logger,
	)

	// Handlers.
	authHandler := handler.NewAuthHandler(githubProvider, authService, s.logger)
	characterHandler := handler.NewCharacterHandler(characterService, s.logger)
	syncHandler := handler.NewSyncHandler(syncService, s.logger)
	guildHandler := handler.NewGuildHandler(guildService, s.logger)
	achievementHandler := handler.NewAchievementHandler(achievementService, s.logger)

	// OAuth flow.
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public reads.
		r.Get("/leaderboard", characterHandler.HandleLeaderboard)
		r.Get("/guilds/{id}", guildHandler.HandleGet)
		r.With(auth.OptionalAuth(tokens)).Get("/achievements", achievementHandler.HandleCatalog)

		// Authenticated player routes.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)
			r.Post("/characters", characterHandler.HandleCreate)
			r.Get("/characters/me", characterHandler.HandleGetOwn)
			r.Post("/sync", syncHandler.HandleSyncSelf)
			r.Post("/guilds", guildHandler.HandleCreate)
			r.Post("/guilds/{id}/join", guildHandler.HandleJoin)
			r.Post("/guilds/{id}/leave", guildHandler.HandleLeave)
		})

		// Operator routes: authenticated AND holding the admin key.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Use(auth.RequireAdmin(adminGate))
			r.Post("/admin/users/{id}/sync", syncHandler.HandleAdminSyncUser)
			r.Post("/admin/sync-all", syncHandler.HandleAdminSyncAll)
			r.Post("/admin/users/{id}/achievements/{code}", achievementHandler.HandleAdminGrant)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, close the database (flushes the WAL, releases the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // bulk sync responses can take a while
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
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
