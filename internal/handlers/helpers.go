// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"codeberg.org/queit/queit/internal/appcontext"
	"codeberg.org/queit/queit/internal/i18n"
	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render renders a templ component with the given status code.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	buf := templ.GetBuffer()
	defer templ.ReleaseBuffer(buf)

	if err := component.Render(c.Request().Context(), buf); err != nil {
		return err
	}

	return c.HTML(statusCode, buf.String())
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error    string   `json:"error"`
	Codes    []string `json:"codes,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// jsonError responds with a translated error message.
func jsonError(c echo.Context, status int, messageID string) error {
	return c.JSON(status, errorBody{Error: i18n.T(c.Request().Context(), messageID)})
}

// appContext returns the custom context, or nil when c was not wrapped.
func appContext(c echo.Context) *appcontext.Context {
	if cc, ok := c.(*appcontext.Context); ok {
		return cc
	}
	return nil
}

// userID returns the authenticated user's id as the code store keys it.
func userID(c echo.Context) string {
	if cc := appContext(c); cc != nil {
		return cc.UserID()
	}
	return ""
}
