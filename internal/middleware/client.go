// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"

	"codeberg.org/queit/queit/internal/appcontext"
	"codeberg.org/queit/queit/internal/secureroute"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"
)

const (
	// ClientIDCookie identifies a browser across requests.
	ClientIDCookie = "_cid"
	// ClientHintCookie carries screen, timezone and canvas signals set by the shell script.
	ClientHintCookie = "_fp"

	clientIDMaxAge = 365 * 24 * 60 * 60
)

// ClientID assigns every browser a random id cookie and exposes it as
// appcontext.Context.ClientID.
func ClientID(secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if ck, err := c.Cookie(ClientIDCookie); err == nil {
				if parsed, perr := uuid.Parse(ck.Value); perr == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     ClientIDCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   clientIDMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if cc, ok := c.(*appcontext.Context); ok {
				cc.ClientID = id
			}
			return next(c)
		}
	}
}

// Environment collects the browser signals codes are bound to and stores
// them in the request context.
func Environment() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			env := secureroute.Environment{
				UserAgent: req.UserAgent(),
				Language:  primaryLanguage(req.Header.Get("Accept-Language")),
			}
			if ck, err := req.Cookie(ClientHintCookie); err == nil {
				env.ApplyClientHints(ck.Value)
			}

			c.SetRequest(req.WithContext(secureroute.WithEnvironment(req.Context(), env)))
			return next(c)
		}
	}
}

// primaryLanguage returns the highest weighted tag of an Accept-Language
// header, the server-side stand-in for navigator.language.
func primaryLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	return tags[0].String()
}
