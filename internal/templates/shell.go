// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package templates

import (
	"context"
	"io"
	"strconv"

	"codeberg.org/queit/queit/internal/secureroute"
	"github.com/a-h/templ"
)

// Shell renders the page every navigable route answers with. The script
// routes on the URL fragment and performs the scheduled history replacement
// announced in the queit-replace-url meta tag, or secures the path named in
// queit-secure-path itself.
func Shell() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		sw := &stickyWriter{w: w}

		sw.write(`<!doctype html><html lang="`, Locale(ctx), `"><head><meta charset="utf-8">`)
		sw.write(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		sw.write(`<title>`, T(ctx, "app_name"), `</title>`)
		sw.write(`<meta name="csrf-token" content="`, CSRFToken(ctx), `">`)
		sw.write(`<meta name="queit-version" content="`, secureroute.Version, `">`)
		if url := ReplaceURL(ctx); url != "" {
			sw.write(`<meta name="queit-replace-url" content="`, url,
				`" data-delay="`, strconv.FormatInt(ReplaceDelay(ctx), 10), `">`)
		} else if path := DeferredPath(ctx); path != "" {
			sw.write(`<meta name="queit-secure-path" content="`, path,
				`" data-delay="`, strconv.FormatInt(ReplaceDelay(ctx), 10), `">`)
		}
		if user := GetUser(ctx); user != nil {
			sw.write(`<meta name="queit-user" content="`, user.Username, `">`)
		}
		sw.write(`<link rel="stylesheet" href="`, CSSPath(ctx), `">`)
		sw.write(`<script defer src="`, JSPath(ctx), `"></script>`)
		sw.write(`</head><body>`)
		sw.write(`<main id="app" aria-busy="true">`, T(ctx, "shell_loading"), `</main>`)
		sw.write(`<noscript>`, T(ctx, "shell_noscript"), `</noscript>`)
		sw.write(`</body></html>`)

		return sw.err
	})
}

// ErrorPage renders a minimal error document.
func ErrorPage(code int, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		sw := &stickyWriter{w: w}
		status := strconv.Itoa(code)

		sw.write(`<!doctype html><html lang="`, Locale(ctx), `"><head><meta charset="utf-8">`)
		sw.write(`<title>`, status, ` · `, T(ctx, "app_name"), `</title>`)
		sw.write(`<link rel="stylesheet" href="`, CSSPath(ctx), `">`)
		sw.write(`</head><body><main class="error"><h1>`, status, `</h1><p>`, message, `</p>`)
		sw.write(`<p><a href="/">`, T(ctx, "app_name"), `</a></p></main></body></html>`)

		return sw.err
	})
}

// stickyWriter keeps the first write error. Arguments alternate between
// literal markup (even positions) and dynamic values (odd positions), which
// are HTML-escaped.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) write(parts ...string) {
	for i, p := range parts {
		if s.err != nil {
			return
		}
		if i%2 == 1 {
			p = templ.EscapeString(p)
		}
		_, s.err = io.WriteString(s.w, p)
	}
}
