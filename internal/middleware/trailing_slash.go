// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"

	"codeberg.org/queit/queit/internal/secureroute"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// StripTrailingSlash redirects requests with trailing slashes to the canonical
// URL without. Secure URLs keep their "/v2/" form. Register it with e.Pre.
func StripTrailingSlash() echo.MiddlewareFunc {
	return echomw.RemoveTrailingSlashWithConfig(echomw.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			return secureroute.IsSecurePath(c.Request().URL.Path)
		},
	})
}
