// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage and the navigation layer into
// an echo server and runs it.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/queit/queit/internal/assets"
	"codeberg.org/queit/queit/internal/config"
	"codeberg.org/queit/queit/internal/database"
	"codeberg.org/queit/queit/internal/handlers"
	"codeberg.org/queit/queit/internal/i18n"
	"codeberg.org/queit/queit/internal/repository"
	"codeberg.org/queit/queit/internal/secureroute"
	"codeberg.org/queit/queit/internal/services/auth"
	"codeberg.org/queit/queit/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

const (
	shutdownTimeout   = 10 * time.Second
	linkPruneInterval = time.Minute
)

// app holds the long-lived objects shared by all requests.
type app struct {
	cfg         *config.Config
	repo        *repository.Repository
	sessions    *session.Manager
	transformer *secureroute.Transformer
	links       *secureroute.Links
}

// newApp builds the application around an open database.
func newApp(cfg *config.Config, db *sqlx.DB) (*app, error) {
	sessions, err := session.NewManager(&cfg.Session, isHTTPS(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	store := secureroute.NewStore(cfg.Nav.Expiry)
	transformer := secureroute.NewTransformer(store, cfg.Nav.SweepChance)

	return &app{
		cfg:         cfg,
		repo:        repository.New(db),
		sessions:    sessions,
		transformer: transformer,
		links:       secureroute.NewLinks(transformer, cfg.Nav.LinkCooldown),
	}, nil
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"nav_expiry", cfg.Nav.Expiry,
	)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	a, err := newApp(cfg, db)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go pruneLinks(ctx, a.links, linkPruneInterval)

	return startWithGracefulShutdown(ctx, a.echo(), cfg)
}

// echo builds the echo instance with middleware and routes.
func (a *app) echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	setupMiddleware(e, a)
	a.routes(e)
	return e
}

func (a *app) routes(e *echo.Echo) {
	h := handlers.New(a.repo, a.transformer.Store())
	nav := handlers.NewNav(a.transformer, a.links)
	authH := handlers.NewAuth(auth.NewService(a.repo), a.sessions)

	e.GET("/static/*", echo.WrapHandler(http.StripPrefix("/static/", assets.FileServer())))
	e.GET("/favicon.ico", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.POST("/nav/secure", nav.Secure)
	api.GET("/nav/resolve", nav.Resolve)
	api.POST("/nav/validate", nav.Validate)
	api.GET("/auth/user", authH.CurrentUser)
	api.Any("/*", func(echo.Context) error { return echo.ErrNotFound })

	e.POST("/auth/register", authH.Register)
	e.POST("/auth/login", authH.Login)
	e.POST("/auth/logout", authH.Logout)

	e.GET("/go/*", nav.Follow)

	// Everything else is a page of the client-side router.
	e.GET("/"+secureroute.Version, h.Shell)
	e.GET("/"+secureroute.Version+"/", h.Shell)
	e.GET("/*", h.Shell)
}

// pruneLinks periodically drops idle link guards until ctx is done.
func pruneLinks(ctx context.Context, links *secureroute.Links, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := links.Prune(); removed > 0 {
				slog.Debug("link_guards_pruned", "removed", removed, "remaining", links.Len())
			}
		}
	}
}

func isHTTPS(cfg *config.Config) bool {
	return strings.HasPrefix(cfg.Server.BaseURL, "https://")
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)
	serve := func(run func() error) {
		go func() {
			if err := run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	var redirect *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		serve(func() error { return e.Start(addr) })
	case TLSModeACME:
		serve(func() error { return startTLSServer(e, ":443", tlsResult.TLSConfig) })
		redirect = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		serve(redirect.ListenAndServe)
		slog.Info("HTTP→HTTPS redirect active", "addr", ":80")
	default:
		serve(func() error { return startTLSServer(e, addr, tlsResult.TLSConfig) })
	}
	slog.Info("server running", "url", cfg.Server.BaseURL, "tls", tlsResult.Mode)

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}
	if redirect != nil {
		if err := redirect.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer serves e over TLS on addr. Shutdown closes e.TLSServer.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	e.TLSServer.Handler = e
	return e.TLSServer.Serve(e.TLSListener)
}
