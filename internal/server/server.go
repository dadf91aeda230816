// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/collegeblog/backend/internal/config"
	"codeberg.org/collegeblog/backend/internal/database"
	"codeberg.org/collegeblog/backend/internal/handlers"
	"codeberg.org/collegeblog/backend/internal/i18n"
	"codeberg.org/collegeblog/backend/internal/models"
	"codeberg.org/collegeblog/backend/internal/repository"
	authsvc "codeberg.org/collegeblog/backend/internal/services/auth"
	"codeberg.org/collegeblog/backend/internal/services/email"
	"codeberg.org/collegeblog/backend/internal/services/google"
	"codeberg.org/collegeblog/backend/internal/services/storage"
	"codeberg.org/collegeblog/backend/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// App holds the services the routes are wired to.
type App struct {
	Config  *config.Config
	Repo    *repository.Repository
	Auth    *authsvc.Service
	Uploads handlers.Uploader
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database, migrations run on open
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := database.Close(db); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	repo := repository.New(db)
	pruneExpiredTokens(ctx, repo)

	app, err := NewApp(ctx, cfg, repo)
	if err != nil {
		return err
	}

	return startWithGracefulShutdown(NewEcho(app), cfg)
}

// pruneExpiredTokens drops verification tokens nobody can redeem anymore. A
// failure only costs disk space, so startup goes on.
func pruneExpiredTokens(ctx context.Context, repo *repository.Repository) {
	n, err := repo.DeleteExpiredEmailVerificationTokens(ctx)
	if err != nil {
		slog.Warn("expired_tokens_prune_failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("expired_tokens_pruned", "count", n)
	}
}

// NewApp builds the services from cfg. Missing secrets or credentials do not
// fail startup; the operations depending on them fail closed at request time.
func NewApp(ctx context.Context, cfg *config.Config, repo *repository.Repository) (*App, error) {
	if cfg.Auth.JWTSecret == "" {
		slog.Warn("jwt secret not configured, token endpoints will fail")
	}
	tokens := token.New(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	verifier, err := google.NewVerifier(&cfg.Google)
	if err != nil {
		return nil, fmt.Errorf("failed to set up google login: %w", err)
	}
	if !verifier.Configured() {
		slog.Warn("google login not configured")
	}

	opts := []authsvc.Option{authsvc.WithIdentityProvider(verifier)}
	if cfg.SMTP.IsConfigured() {
		mailer, mailErr := email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
		if mailErr != nil {
			return nil, fmt.Errorf("failed to set up email: %w", mailErr)
		}
		opts = append(opts, authsvc.WithMailer(mailer))
	} else {
		slog.Info("smtp not configured, new accounts are verified immediately")
	}

	app := &App{
		Config: cfg,
		Repo:   repo,
		Auth:   authsvc.NewService(repo, &cfg.Auth, tokens, opts...),
	}

	if cfg.Storage.IsConfigured() {
		uploads, storageErr := storage.New(ctx, &cfg.Storage)
		if storageErr != nil {
			return nil, fmt.Errorf("failed to set up storage: %w", storageErr)
		}
		app.Uploads = uploads
	} else {
		slog.Warn("file storage not configured, uploads will fail")
	}

	return app, nil
}

// NewEcho returns the fully wired HTTP handler.
func NewEcho(app *App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	setupMiddleware(e, app.Config)
	setupRoutes(e, app)
	return e
}

func setupRoutes(e *echo.Echo, app *App) {
	var opts []handlers.Option
	if app.Uploads != nil {
		opts = append(opts, handlers.WithUploader(app.Uploads))
	}
	h := handlers.New(app.Repo, opts...)
	a := handlers.NewAuth(app.Auth, app.Repo)
	requireAuth := RequireAuth(app.Auth)

	e.GET("/health", h.Health)

	// Accounts and authentication
	e.POST("/auth/token", a.Token)
	e.GET("/auth/google/login", a.GoogleLogin)
	e.GET("/auth/google/callback", a.GoogleCallback)
	e.GET("/auth/verify-email", a.VerifyEmail)
	e.POST("/auth/resend-verification", a.ResendVerification)
	e.POST("/users", a.Register)
	e.GET("/users/me", a.Me, requireAuth)
	e.PUT("/users/me/username", a.UpdateUsername, requireAuth)
	e.GET("/users/:id", a.Profile)

	// Posts
	e.POST("/posts", h.CreatePost, requireAuth)
	e.GET("/posts", h.ListPosts)
	e.GET("/posts/:id", h.GetPost)
	e.PUT("/posts/:id", h.UpdatePost, requireAuth)
	e.DELETE("/posts/:id", h.DeletePost, requireAuth)

	// Bookmarks
	bookmarks := e.Group("/bookmarks", requireAuth)
	bookmarks.POST("", h.CreateBookmark)
	bookmarks.GET("", h.ListBookmarks)
	bookmarks.DELETE("/:id", h.DeleteBookmark)

	// Resources
	e.POST("/resources", h.CreateResource, requireAuth)
	e.GET("/resources", h.ListResources)
	e.GET("/resources/:id", h.GetResource)
	e.PUT("/resources/:id", h.UpdateResource, requireAuth)
	e.DELETE("/resources/:id", h.DeleteResource, requireAuth)

	// Clubs
	e.POST("/clubs", h.CreateClub, requireAuth)
	e.GET("/clubs", h.ListClubs)
	e.GET("/clubs/:id", h.GetClub)
	e.PUT("/clubs/:id", h.UpdateClub, requireAuth)
	e.DELETE("/clubs/:id", h.DeleteClub, requireAuth)

	// Categories
	for prefix, kind := range map[string]models.CategoryKind{
		"/post-categories":     models.PostCategory,
		"/resource-categories": models.ResourceCategory,
		"/club-categories":     models.ClubCategory,
	} {
		e.POST(prefix, h.CreateCategory(kind), requireAuth)
		e.GET(prefix, h.ListCategories(kind))
	}

	// Uploads
	e.POST("/uploadfile", h.UploadFile, requireAuth)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsConfig, err := loadTLS(cfg.TLS)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 1)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	go func() {
		slog.Info("server running", "url", cfg.Server.BaseURL)
		var serveErr error
		if tlsConfig != nil {
			serveErr = startTLSServer(e, addr, tlsConfig)
		} else {
			serveErr = e.Start(addr)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
