// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package secureroute

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
)

// DefaultLinkCooldown is the window in which repeated link activations are ignored.
const DefaultLinkCooldown = 500 * time.Millisecond

// Link guards link activations of one client. An accepted activation moves
// idle → pending → committed; further activations inside the cooldown window
// are dropped.
type Link struct {
	transformer *Transformer
	now         func() time.Time
	activatedAt time.Time
	cooldown    time.Duration
	phase       Phase
	mu          sync.Mutex
}

// NewLink creates a link guard. A non-positive cooldown uses DefaultLinkCooldown.
func NewLink(t *Transformer, cooldown time.Duration) *Link {
	if cooldown <= 0 {
		cooldown = DefaultLinkCooldown
	}
	return &Link{
		transformer: t,
		now:         time.Now,
		cooldown:    cooldown,
	}
}

// Follow activates a link to path. When the activation is accepted it mints a
// fresh secure URL and hands it to navigate, which must perform a full
// top-level navigation. It reports whether the activation was accepted.
func (l *Link) Follow(ctx context.Context, path, userID string, navigate func(url string)) bool {
	if !l.accept() {
		return false
	}
	l.complete(ctx, path, userID, navigate)
	return true
}

// accept starts an activation unless one was accepted within the cooldown.
func (l *Link) accept() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.phase != PhaseIdle && now.Sub(l.activatedAt) < l.cooldown {
		return false
	}
	l.phase = PhasePending
	l.activatedAt = now
	return true
}

func (l *Link) complete(ctx context.Context, path, userID string, navigate func(url string)) {
	url := l.transformer.ToSecurePath(ctx, path, userID, true)
	navigate(url)

	l.mu.Lock()
	l.phase = PhaseCommitted
	l.mu.Unlock()
}

// Phase returns the state of the last accepted activation.
func (l *Link) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// cooledDown reports whether the cooldown of the last activation has elapsed.
func (l *Link) cooledDown(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase == PhaseIdle || now.Sub(l.activatedAt) >= l.cooldown
}

// Links holds one Link per client id.
type Links struct {
	transformer *Transformer
	links       map[string]*Link
	now         func() time.Time
	cooldown    time.Duration
	mu          sync.Mutex
}

// NewLinks creates an empty registry.
func NewLinks(t *Transformer, cooldown time.Duration) *Links {
	if cooldown <= 0 {
		cooldown = DefaultLinkCooldown
	}
	return &Links{
		transformer: t,
		links:       make(map[string]*Link),
		now:         time.Now,
		cooldown:    cooldown,
	}
}

// For returns the link guard of clientID, creating it on first use.
// A guard that has not been activated yet may be pruned at any time; use
// Follow to activate the guard of a client.
func (r *Links) For(clientID string) *Link {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(clientID)
}

// Follow activates a link for clientID. The guard is looked up and the
// activation accepted under the registry lock, so Prune cannot drop the guard
// in between.
func (r *Links) Follow(ctx context.Context, clientID, path, userID string, navigate func(url string)) bool {
	r.mu.Lock()
	l := r.lookup(clientID)
	ok := l.accept()
	r.mu.Unlock()

	if !ok {
		return false
	}
	l.complete(ctx, path, userID, navigate)
	return true
}

func (r *Links) lookup(clientID string) *Link {
	if l, ok := r.links[clientID]; ok {
		return l
	}
	l := NewLink(r.transformer, r.cooldown)
	l.now = r.now
	r.links[clientID] = l
	return l
}

// Prune drops guards whose cooldown has elapsed and returns how many were removed.
func (r *Links) Prune() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.links)
	r.links = lo.OmitBy(r.links, func(_ string, l *Link) bool {
		return l.cooledDown(now)
	})
	return before - len(r.links)
}

// Len returns the number of tracked clients.
func (r *Links) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}
