// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

//go:build dev

// Package assets serves the shell script and stylesheet from disk in
// development mode, so edits show up without a rebuild.
package assets

import (
	"net/http"
)

// CSSPath returns the URL of the stylesheet.
func CSSPath() string {
	return defaultCSSPath
}

// JSPath returns the URL of the shell script.
func JSPath() string {
	return defaultJSPath
}

// FileServer serves internal/assets/static from the working directory.
func FileServer() http.Handler {
	return http.FileServer(http.Dir("internal/assets/static"))
}
