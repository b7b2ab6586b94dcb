// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package secureroute

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
)

// DefaultSweepChance is the probability that ToSecurePath sweeps the store.
const DefaultSweepChance = 0.1

const (
	errorCodeLength   = 6
	errorCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// securePattern matches "/v2/?code=C[&errorCode=E]#F", optionally preceded by
// a scheme and host. The errorCode parameter is optional, code is not.
var securePattern = regexp.MustCompile(`^(?:https?://[^/?#]+)?/` + Version + `/\?code=([^&#]+)(?:&errorCode=([^&#]*))?#(.*)$`)

// Location is a parsed secure URL.
type Location struct {
	Path      string
	Code      string
	ErrorCode string
}

// Transformer maps logical paths to secure URLs and back.
type Transformer struct {
	store       *Store
	roll        func() float64
	errorCode   func() string
	sweepChance float64
}

// NewTransformer creates a transformer issuing codes from store.
// A negative sweepChance disables opportunistic sweeping.
func NewTransformer(store *Store, sweepChance float64) *Transformer {
	return &Transformer{
		store:       store,
		roll:        rand.Float64,
		errorCode:   randomErrorCode,
		sweepChance: sweepChance,
	}
}

// Store returns the code store backing the transformer.
func (t *Transformer) Store() *Store {
	return t.store
}

// ToSecurePath returns the secure URL for path. With forceNew every call mints
// a new code; otherwise the user's current code is reused while it is valid.
func (t *Transformer) ToSecurePath(ctx context.Context, path, userID string, forceNew bool) string {
	if t.roll() < t.sweepChance {
		if removed := t.store.SweepExpired(); removed > 0 {
			slog.DebugContext(ctx, "code_sweep", "removed", removed)
		}
	}

	var code string
	if forceNew {
		code = t.store.Generate(ctx, userID)
	} else {
		code = t.store.CurrentOrNew(ctx, userID)
	}

	clean := strings.TrimPrefix(path, "/")

	var sb strings.Builder
	sb.WriteString("/" + Version + "/?code=")
	sb.WriteString(code)
	sb.WriteString("&errorCode=")
	sb.WriteString(t.errorCode())
	sb.WriteString("#")
	sb.WriteString(clean)

	slog.DebugContext(ctx, "secure_route_issued", "path", path, "user_id", userID, "force_new", forceNew)
	return sb.String()
}

// FromSecurePath parses a secure URL. It returns nil when raw does not have
// the secure URL shape; callers then treat raw as a plain logical path.
func FromSecurePath(raw string) *Location {
	m := securePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	return &Location{
		Code:      m[1],
		ErrorCode: m[2],
		Path:      "/" + m[3],
	}
}

// IsSecurePath reports whether path already carries the secure URL prefix.
func IsSecurePath(path string) bool {
	prefix := "/" + Version
	return path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?")
}

// randomErrorCode returns decorative randomness; nothing validates it.
func randomErrorCode() string {
	b := make([]byte, errorCodeLength)
	for i := range b {
		b[i] = errorCodeAlphabet[rand.IntN(len(errorCodeAlphabet))]
	}
	return string(b)
}
