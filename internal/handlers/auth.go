// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/queit/queit/internal/i18n"
	"codeberg.org/queit/queit/internal/models"
	"codeberg.org/queit/queit/internal/services/auth"
	"codeberg.org/queit/queit/internal/services/session"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// AuthHandlers contains handlers for authentication.
type AuthHandlers struct {
	auth     *auth.Service
	sessions *session.Manager
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *auth.Service, sess *session.Manager) *AuthHandlers {
	return &AuthHandlers{
		auth:     svc,
		sessions: sess,
	}
}

// CredentialsRequest is the request body for registration and login.
type CredentialsRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type userResponse struct {
	User *models.PublicUser `json:"user"`
}

// CurrentUser returns the logged-in user, or {"user": null}.
func (h *AuthHandlers) CurrentUser(c echo.Context) error {
	var user *models.User
	if cc := appContext(c); cc != nil {
		user = cc.User
	}
	return c.JSON(http.StatusOK, userResponse{User: user.Public()})
}

// Register creates an account and logs it in.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "error_bad_request")
	}

	user, err := h.auth.Register(c.Request().Context(), req.Username, req.Password)
	var pwErr *auth.PasswordError
	switch {
	case errors.As(err, &pwErr):
		return h.passwordRejected(c, pwErr)
	case errors.Is(err, auth.ErrInvalidUsername):
		return jsonError(c, http.StatusBadRequest, "error_invalid_username")
	case errors.Is(err, auth.ErrUserExists):
		return jsonError(c, http.StatusConflict, "error_user_exists")
	case err != nil:
		slog.ErrorContext(c.Request().Context(), "register_failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_internal")
	}

	if err := h.startSession(c, user); err != nil {
		slog.ErrorContext(c.Request().Context(), "session_create_failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_internal")
	}
	return c.JSON(http.StatusCreated, userResponse{User: user.Public()})
}

// Login verifies credentials and sets the session cookie.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "error_bad_request")
	}

	user, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return jsonError(c, http.StatusUnauthorized, "error_invalid_credentials")
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "login_error", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_internal")
	}

	if err := h.startSession(c, user); err != nil {
		slog.ErrorContext(c.Request().Context(), "session_create_failed", "error", err)
		return jsonError(c, http.StatusInternalServerError, "error_internal")
	}
	return c.JSON(http.StatusOK, userResponse{User: user.Public()})
}

// Logout clears the session cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandlers) startSession(c echo.Context, user *models.User) error {
	cookie, err := h.sessions.Create(user.ID, user.Username)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)
	return nil
}

// passwordRejected lists every broken rule, translated, with the first one
// as the headline message.
func (h *AuthHandlers) passwordRejected(c echo.Context, pwErr *auth.PasswordError) error {
	ctx := c.Request().Context()
	messages := lo.Map(pwErr.Codes, func(code string, _ int) string {
		return i18n.T(ctx, "password_"+code)
	})
	return c.JSON(http.StatusBadRequest, errorBody{
		Error:    messages[0],
		Codes:    pwErr.Codes,
		Messages: messages,
	})
}
