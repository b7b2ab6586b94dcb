// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codeberg.org/queit/queit/internal/appcontext"
	"codeberg.org/queit/queit/internal/i18n"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHashedAsset(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/static/dist/app-Q7ZPXK2M.js", true},
		{"/static/dist/styles-4KX2AB7C.css", true},
		{"/static/js/app.js", false},
		{"/static/dist/app-q7zpxk2m.js", false},  // lower case is not an esbuild hash
		{"/static/dist/app-Q7ZPXK2.js", false},   // wrong length
		{"/static/dist/app-Q7ZPXK2MM.js", false}, // wrong length
		{"/static/dist/app-Q7ZP-K2M.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHashedAsset(tt.path))
		})
	}
}

func TestStaticCacheHeaders(t *testing.T) {
	e := echo.New()
	e.Use(staticCacheHeaders())
	e.GET("/*", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	tests := []struct {
		path     string
		expected string
	}{
		{"/static/dist/app-Q7ZPXK2M.js", "public, max-age=31536000, immutable"},
		{"/static/js/app.js", "no-cache"},
		{"/api/data", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expected, rec.Header().Get("Cache-Control"))
		})
	}
}

func TestI18nMiddleware(t *testing.T) {
	require.NoError(t, i18n.Init())

	e := echo.New()
	e.Use(i18nMiddleware())

	var locale string
	e.GET("/", func(c echo.Context) error {
		locale = i18n.GetLocale(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	for header, want := range map[string]string{"en-US": "en", "de-DE": "de", "fr-FR": "en"} {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept-Language", header)
			e.ServeHTTP(httptest.NewRecorder(), req)

			assert.True(t, strings.HasPrefix(locale, want), "expected locale to start with %q, got %s", want, locale)
		})
	}
}

func TestCsrfToContext(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"without csrf middleware", ""},
		{"with token", "test-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
				return func(c echo.Context) error {
					if tt.token != "" {
						c.Set("csrf", tt.token)
					}
					return next(c)
				}
			})
			e.Use(csrfToContext())

			var got string
			e.GET("/", func(c echo.Context) error {
				got, _ = c.Request().Context().Value(appcontext.CSRFToken{}).(string)
				return c.NoContent(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.token, got)
		})
	}
}

func TestCustomContext(t *testing.T) {
	e := echo.New()
	assets := &appcontext.Assets{
		CSSPath: "/static/dist/styles-4KX2AB7C.css",
		JSPath:  "/static/dist/app-Q7ZPXK2M.js",
	}

	var captured *appcontext.Context
	handler := customContext(assets)(func(c echo.Context) error {
		cc, ok := c.(*appcontext.Context)
		require.True(t, ok, "context should be *appcontext.Context")
		captured = cc
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Boosted", "true")
	require.NoError(t, handler(e.NewContext(req, httptest.NewRecorder())))

	require.NotNil(t, captured)
	assert.Same(t, assets, captured.Assets)
	assert.True(t, captured.Htmx.IsHtmx)
	assert.True(t, captured.Htmx.IsBoosted)
	assert.Nil(t, captured.User)
	assert.Empty(t, captured.ClientID)

	ctx := captured.Request().Context()
	assert.Equal(t, assets.CSSPath, ctx.Value(appcontext.CSSPath{}))
	assert.Equal(t, assets.JSPath, ctx.Value(appcontext.JSPath{}))
}

func TestCurrentAssets(t *testing.T) {
	a := currentAssets()

	assert.True(t, strings.HasPrefix(a.CSSPath, "/static/"))
	assert.True(t, strings.HasPrefix(a.JSPath, "/static/"))
}
