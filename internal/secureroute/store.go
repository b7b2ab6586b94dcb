// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package secureroute implements the obfuscated navigation scheme: an in-memory
// code store, the path transformer that maps logical paths to /v2 URLs and back,
// and the interceptor state machines that drive history replacement and links.
//
// The scheme hides logical paths from the address bar. It is not an access
// control: anyone can read the fragment of a secure URL.
package secureroute

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// Version is the first path segment of every secure URL.
	Version = "v2"

	// DefaultExpiry is the lifetime of an issued code.
	DefaultExpiry = 30 * time.Minute

	codeLength   = 16
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Record is a single issued code. Records only live in process memory.
type Record struct { //nolint:govet // fieldalignment not critical
	SessionID   string
	Code        string
	UserID      string // empty for anonymous visitors
	CreatedAt   time.Time
	Fingerprint string
}

func (r *Record) expired(now time.Time, window time.Duration) bool {
	return now.Sub(r.CreatedAt) >= window
}

// Store keeps issued codes and the current code per user.
// Create one per process and share it; it is safe for concurrent use.
type Store struct {
	records     map[string]*Record
	byUser      map[string]string
	now         func() time.Time
	fingerprint func(context.Context) string
	expiry      time.Duration
	mu          sync.Mutex
}

// NewStore creates an empty store. A non-positive expiry falls back to DefaultExpiry.
func NewStore(expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{
		records:     make(map[string]*Record),
		byUser:      make(map[string]string),
		now:         time.Now,
		fingerprint: contextFingerprint,
		expiry:      expiry,
	}
}

// Expiry returns the validity window of issued codes.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Generate issues a new code bound to the environment in ctx and, when userID
// is set, makes it the user's current code. Older codes of the same user stay
// in the store until they expire or are swept.
func (s *Store) Generate(ctx context.Context, userID string) string {
	fp := s.fingerprint(ctx)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	code := newCode()
	for s.records[code] != nil {
		code = newCode()
	}

	s.records[code] = &Record{
		SessionID:   uuid.NewString(),
		Code:        code,
		UserID:      userID,
		CreatedAt:   now,
		Fingerprint: fp,
	}
	if userID != "" {
		s.byUser[userID] = code
	}

	return code
}

// CurrentOrNew returns the user's current code while it is unexpired and
// issues a new one otherwise. Anonymous callers always get a new code.
func (s *Store) CurrentOrNew(ctx context.Context, userID string) string {
	if code, ok := s.current(userID); ok {
		return code
	}
	return s.Generate(ctx, userID)
}

func (s *Store) current(userID string) (string, bool) {
	if userID == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, ok := s.byUser[userID]
	if !ok {
		return "", false
	}
	rec := s.records[code]
	if rec == nil || rec.expired(s.now(), s.expiry) {
		return "", false
	}
	return code, true
}

// Validate reports whether code is known, unexpired, owned by userID (when
// userID is set) and bound to the fingerprint of the environment in ctx.
// An expired code is removed as a side effect.
func (s *Store) Validate(ctx context.Context, code, userID string) bool {
	fp := s.fingerprint(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[code]
	if !ok {
		return false
	}
	if rec.expired(s.now(), s.expiry) {
		s.remove(rec)
		return false
	}
	if userID != "" && rec.UserID != userID {
		return false
	}
	return rec.Fingerprint == fp
}

// SweepExpired deletes every expired record and returns how many were removed.
func (s *Store) SweepExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, rec := range s.records {
		if rec.expired(now, s.expiry) {
			s.remove(rec)
			removed++
		}
	}
	return removed
}

// Len returns the number of records currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// remove deletes rec and its user index entry. The index is only cleared when
// it still points at rec, so a superseding code survives. Callers hold s.mu.
func (s *Store) remove(rec *Record) {
	delete(s.records, rec.Code)
	if rec.UserID != "" && s.byUser[rec.UserID] == rec.Code {
		delete(s.byUser, rec.UserID)
	}
}

// newCode returns a sanitized random code from codeAlphabet.
// Rejection sampling keeps the distribution uniform.
func newCode() string {
	const limit = 248 // 62*4
	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength)
	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		for _, b := range buf {
			if b < limit && len(out) < codeLength {
				out = append(out, codeAlphabet[b%byte(len(codeAlphabet))])
			}
		}
	}
	return sanitize(string(out))
}

// sanitize strips characters that could break out of an HTML attribute.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '\'', '"', '&':
			return -1
		}
		return r
	}, s)
}
