// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/queit/queit/internal/i18n"
	"codeberg.org/queit/queit/internal/templates"
	"github.com/labstack/echo/v4"
)

// HTTPErrorHandler answers API routes with a JSON error body and pages with
// the error document.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}

	req := c.Request()
	ctx := req.Context()
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request_failed", "error", err, "path", req.URL.Path)
	}

	message := i18n.T(ctx, messageFor(code))

	var rerr error
	switch {
	case req.Method == http.MethodHead:
		rerr = c.NoContent(code)
	case wantsJSON(req):
		rerr = c.JSON(code, errorBody{Error: message})
	default:
		rerr = Render(c, code, templates.ErrorPage(code, message))
	}
	if rerr != nil {
		slog.ErrorContext(ctx, "error_response_failed", "error", rerr)
	}
}

func messageFor(code int) string {
	switch {
	case code == http.StatusNotFound:
		return "error_not_found"
	case code >= http.StatusInternalServerError:
		return "error_internal"
	default:
		return "error_bad_request"
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
