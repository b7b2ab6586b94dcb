// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

//go:build !dev

// Package assets provides the embedded shell script and stylesheet.
package assets

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
)

//go:embed esbuild-meta.json
var metaData []byte

//go:embed static
var staticFS embed.FS

var paths = loadPaths(metaData)

// CSSPath returns the URL of the stylesheet.
func CSSPath() string {
	return paths.css
}

// JSPath returns the URL of the shell script.
func JSPath() string {
	return paths.js
}

func loadPaths(data []byte) assetPaths {
	p, err := parseMeta(data)
	if err != nil {
		slog.Error("failed to parse esbuild meta", "error", err)
	}
	return p
}

// FileServer serves the embedded static directory.
func FileServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("failed to create sub filesystem: " + err.Error())
	}
	return http.FileServer(http.FS(sub))
}
