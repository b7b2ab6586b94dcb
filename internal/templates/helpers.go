// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package templates renders the HTML shell around the client-side router.
package templates

import (
	"context"
	"time"

	"codeberg.org/queit/queit/internal/appcontext"
	"codeberg.org/queit/queit/internal/i18n"
	"codeberg.org/queit/queit/internal/models"
)

// CSRFToken returns the CSRF token from the context.
func CSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(appcontext.CSRFToken{}).(string); ok {
		return token
	}
	return ""
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return i18n.T(ctx, messageID)
}

// Locale returns the current locale.
func Locale(ctx context.Context) string {
	return i18n.GetLocale(ctx)
}

// CSSPath returns the path to the hashed CSS file.
func CSSPath(ctx context.Context) string {
	if path, ok := ctx.Value(appcontext.CSSPath{}).(string); ok {
		return path
	}
	return "/static/css/styles.css"
}

// JSPath returns the path to the hashed shell script.
func JSPath(ctx context.Context) string {
	if path, ok := ctx.Value(appcontext.JSPath{}).(string); ok {
		return path
	}
	return "/static/js/app.js"
}

// ReplaceURL returns the secure URL scheduled to replace the current history
// entry, or "" when the page load was not transformed.
func ReplaceURL(ctx context.Context) string {
	if url, ok := ctx.Value(appcontext.ReplaceURL{}).(string); ok {
		return url
	}
	return ""
}

// DeferredPath returns the path the shell script should secure itself, or "".
func DeferredPath(ctx context.Context) string {
	if p, ok := ctx.Value(appcontext.DeferredPath{}).(string); ok {
		return p
	}
	return ""
}

// ReplaceDelay returns the delay before the history replacement in milliseconds.
func ReplaceDelay(ctx context.Context) int64 {
	if d, ok := ctx.Value(appcontext.ReplaceDelay{}).(time.Duration); ok {
		return d.Milliseconds()
	}
	return 0
}

// GetUser returns the authenticated user from context, or nil if not logged in.
func GetUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(appcontext.User{}).(*models.User); ok {
		return user
	}
	return nil
}
