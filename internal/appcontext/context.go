// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext provides the custom Echo context and context keys.
package appcontext

import (
	"codeberg.org/queit/queit/internal/htmx"
	"codeberg.org/queit/queit/internal/models"
	"github.com/labstack/echo/v4"
)

// Context keys for storing values in context.Context.
type (
	// CSRFToken is the context key for the CSRF token.
	CSRFToken struct{}
	// CSSPath is the context key for the CSS path.
	CSSPath struct{}
	// JSPath is the context key for the shell script path.
	JSPath struct{}
	// User is the context key for the authenticated user.
	User struct{}
	// ReplaceURL is the context key for the secure URL the shell should
	// swap into the address bar.
	ReplaceURL struct{}
	// ReplaceDelay is the context key for the history replacement delay.
	ReplaceDelay struct{}
	// DeferredPath is the context key for a path the browser secures itself
	// once it has reported its client hints.
	DeferredPath struct{}
)

// Assets holds paths to static assets.
type Assets struct {
	CSSPath string
	JSPath  string
}

// Context is a custom Echo context with typed fields for htmx, assets, user
// and the browser's client id.
type Context struct {
	echo.Context
	Htmx     *htmx.Request
	Assets   *Assets
	User     *models.User // nil if not authenticated
	ClientID string       // value of the client id cookie, empty until assigned
}

// GetUser returns the authenticated user, or nil if not authenticated.
func (c *Context) GetUser() *models.User {
	return c.User
}

// IsAuthenticated returns true if the user is authenticated.
func (c *Context) IsAuthenticated() bool {
	return c.User != nil
}

// UserID returns the id of the authenticated user in the form the code store
// keys on, or "" for anonymous visitors.
func (c *Context) UserID() string {
	if c.User == nil {
		return ""
	}
	return c.User.Key()
}

// DebounceKey identifies the browser for link debouncing: the client id when
// present, the user otherwise.
func (c *Context) DebounceKey() string {
	if c.ClientID != "" {
		return "cid:" + c.ClientID
	}
	if id := c.UserID(); id != "" {
		return "uid:" + id
	}
	return ""
}
