// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware holds the echo middleware that prepares requests for the
// navigation layer: user, client id, browser environment and history rewrite.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"codeberg.org/queit/queit/internal/appcontext"
	"codeberg.org/queit/queit/internal/models"
	"codeberg.org/queit/queit/internal/services/session"
	"github.com/labstack/echo/v4"
)

// SessionReader decodes the session cookie of a request.
type SessionReader interface {
	Parse(r *http.Request) (*session.Data, error)
}

// UserLoader is an interface for loading full user data.
type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// LoadUser resolves the session cookie to a user and stores it on the
// appcontext.Context and in the request context. Requests without a valid
// session pass through anonymously.
func LoadUser(sessions SessionReader, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc, ok := c.(*appcontext.Context)
			if !ok {
				return next(c)
			}

			req := c.Request()
			data, err := sessions.Parse(req)
			if err != nil {
				slog.WarnContext(req.Context(), "session_parse_failed", "error", err)
				return next(c)
			}
			if data == nil {
				return next(c)
			}

			user, err := users.GetUserByID(req.Context(), data.UserID)
			if err != nil {
				slog.DebugContext(req.Context(), "session_user_missing", "user_id", data.UserID, "error", err)
				return next(c)
			}

			cc.User = user
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), appcontext.User{}, user)))
			return next(c)
		}
	}
}
