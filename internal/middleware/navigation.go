// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"codeberg.org/queit/queit/internal/appcontext"
	"codeberg.org/queit/queit/internal/htmx"
	"codeberg.org/queit/queit/internal/secureroute"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// NavigationConfig configures SecureNavigation.
type NavigationConfig struct {
	Excluded []string      // added to secureroute.DefaultExcludedPrefixes
	Delay    time.Duration // replacement delay the browser applies
}

// SecureNavigation runs the interceptor for every page load. When a path is
// transformed, the secure URL is announced to the browser: as HX-Replace-Url
// for boosted htmx requests, and through the request context for the shell
// page, which replaces the history entry after the delay.
//
// The browser applies the delay, so the interceptor commits immediately.
//
// Codes are bound to the client-hint cookie. Until the shell script has set
// it, no code is minted: the path is handed to the shell, which requests the
// secure URL through the API after reporting its hints.
func SecureNavigation(tr *secureroute.Transformer, cfg NavigationConfig) echo.MiddlewareFunc {
	excluded := lo.Uniq(slices.Concat(secureroute.DefaultExcludedPrefixes, cfg.Excluded))
	if cfg.Delay <= 0 {
		cfg.Delay = secureroute.DefaultReplaceDelay
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}

			hx := htmx.ParseRequest(req)
			userID := ""
			if cc, ok := c.(*appcontext.Context); ok {
				userID = cc.UserID()
				if cc.Htmx != nil {
					hx = cc.Htmx
				}
			}
			if !hx.IsPageNavigation() {
				return next(c)
			}

			if _, err := req.Cookie(ClientHintCookie); err != nil {
				path := req.URL.RequestURI()
				if secureroute.Classify(path, excluded) == secureroute.ActionTransform {
					ctx := context.WithValue(req.Context(), appcontext.DeferredPath{}, path)
					ctx = context.WithValue(ctx, appcontext.ReplaceDelay{}, cfg.Delay)
					c.SetRequest(req.WithContext(ctx))
					slog.DebugContext(ctx, "history_replace_deferred", "path", req.URL.Path)
				}
				return next(c)
			}

			var replaced string
			interceptor := secureroute.NewInterceptor(tr,
				secureroute.HistoryFunc(func(url string) { replaced = url }),
				secureroute.InterceptorConfig{
					Schedule: secureroute.ImmediateScheduler,
					Excluded: excluded,
					Delay:    cfg.Delay,
				})

			d := interceptor.RouteChanged(req.Context(), req.URL.RequestURI(), userID)
			if d.Action != secureroute.ActionTransform {
				return next(c)
			}

			if hx.IsHtmx {
				htmx.SetReplaceURL(c.Response().Header(), replaced)
			}
			ctx := context.WithValue(req.Context(), appcontext.ReplaceURL{}, replaced)
			ctx = context.WithValue(ctx, appcontext.ReplaceDelay{}, cfg.Delay)
			c.SetRequest(req.WithContext(ctx))

			slog.DebugContext(ctx, "history_replace_scheduled", "path", req.URL.Path, "phase", interceptor.Phase().String())
			return next(c)
		}
	}
}
