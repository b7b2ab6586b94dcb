// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package secureroute

import (
	"context"
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
)

const fingerprintLength = 32

// Environment holds the browser signals a code is bound to.
type Environment struct { //nolint:govet // fieldalignment not critical
	UserAgent      string
	Language       string
	ScreenWidth    int
	ScreenHeight   int
	TimezoneOffset int    // minutes, as reported by Date.getTimezoneOffset
	CanvasHash     string // tail of the canvas data URL
}

// Fingerprint concatenates the signals, base64-encodes them and truncates the
// result. The same environment always yields the same fingerprint.
// This is a soft device binding, not a security boundary.
func (e Environment) Fingerprint() string {
	var sb strings.Builder
	sb.WriteString(e.UserAgent)
	sb.WriteString(e.Language)
	sb.WriteString(strconv.Itoa(e.ScreenWidth))
	sb.WriteString("x")
	sb.WriteString(strconv.Itoa(e.ScreenHeight))
	sb.WriteString(strconv.Itoa(e.TimezoneOffset))
	sb.WriteString(e.CanvasHash)

	encoded := base64.StdEncoding.EncodeToString([]byte(sb.String()))
	if len(encoded) > fingerprintLength {
		encoded = encoded[:fingerprintLength]
	}
	return encoded
}

// ApplyClientHints fills the screen, timezone and canvas fields from the value
// of the client hint cookie ("<w>x<h>|<tz>|<canvas>", URL-encoded).
// Malformed parts are ignored and leave the field untouched.
func (e *Environment) ApplyClientHints(raw string) {
	if decoded, err := url.QueryUnescape(raw); err == nil {
		raw = decoded
	}
	parts := strings.SplitN(raw, "|", 3)

	if w, h, ok := strings.Cut(parts[0], "x"); ok {
		width, werr := strconv.Atoi(w)
		height, herr := strconv.Atoi(h)
		if werr == nil && herr == nil {
			e.ScreenWidth, e.ScreenHeight = width, height
		}
	}
	if len(parts) > 1 {
		if tz, err := strconv.Atoi(parts[1]); err == nil {
			e.TimezoneOffset = tz
		}
	}
	if len(parts) > 2 {
		e.CanvasHash = parts[2]
	}
}

type environmentKey struct{}

// WithEnvironment returns a context carrying env.
func WithEnvironment(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, environmentKey{}, env)
}

// EnvironmentFromContext returns the environment stored in ctx, or the zero value.
func EnvironmentFromContext(ctx context.Context) Environment {
	if env, ok := ctx.Value(environmentKey{}).(Environment); ok {
		return env
	}
	return Environment{}
}

func contextFingerprint(ctx context.Context) string {
	return EnvironmentFromContext(ctx).Fingerprint()
}
