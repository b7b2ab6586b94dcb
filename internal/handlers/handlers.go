// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the echo handlers for pages, the navigation API
// and account plumbing.
package handlers

import (
	"log/slog"
	"net/http"

	"codeberg.org/queit/queit/internal/repository"
	"codeberg.org/queit/queit/internal/secureroute"
	"codeberg.org/queit/queit/internal/templates"
	"github.com/labstack/echo/v4"
)

// Handlers contains the page and health handlers.
type Handlers struct {
	repo  *repository.Repository
	store *secureroute.Store
}

// New creates a new Handlers instance.
func New(repo *repository.Repository, store *secureroute.Store) *Handlers {
	return &Handlers{repo: repo, store: store}
}

// Health reports database reachability and the number of live codes.
func (h *Handlers) Health(c echo.Context) error {
	status, code := "ok", http.StatusOK
	if h.repo != nil {
		if err := h.repo.DB().PingContext(c.Request().Context()); err != nil {
			slog.ErrorContext(c.Request().Context(), "health_db_unreachable", "error", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}

	body := map[string]any{"status": status}
	if h.store != nil {
		body["codes"] = h.store.Len()
	}
	return c.JSON(code, body)
}

// Shell renders the client-side router shell. Every navigable page, secure
// URLs included, is answered with it.
func (h *Handlers) Shell(c echo.Context) error {
	return Render(c, http.StatusOK, templates.Shell())
}
