// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package secureroute

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// DefaultExcludedPrefixes bypass the scheme entirely: auth pages, API routes,
// static assets and dev-server internals.
var DefaultExcludedPrefixes = []string{
	"/auth",
	"/login",
	"/register",
	"/api/",
	"/favicon.ico",
	"/uploads/",
	"/static/",
	"/_vite/",
}

// DefaultReplaceDelay is the debounce before the history entry is replaced.
const DefaultReplaceDelay = 100 * time.Millisecond

// IsExcluded reports whether path starts with one of prefixes.
func IsExcluded(path string, prefixes []string) bool {
	return lo.ContainsBy(prefixes, func(prefix string) bool {
		return strings.HasPrefix(path, prefix)
	})
}

// Phase is the state of a pending navigation side effect.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseCommitted
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseCommitted:
		return "committed"
	default:
		return "idle"
	}
}

// Action is the outcome of evaluating a route change.
type Action int

const (
	// ActionNone means the path was already evaluated.
	ActionNone Action = iota
	// ActionSkipSecure means the path is already a secure URL.
	ActionSkipSecure
	// ActionSkipExcluded means the path matches an excluded prefix.
	ActionSkipExcluded
	// ActionTransform means a history replacement was scheduled.
	ActionTransform
)

// Decision describes what RouteChanged did.
type Decision struct {
	URL    string // set for ActionTransform
	Action Action
}

// History replaces the current history entry without adding a new one.
type History interface {
	Replace(url string)
}

// HistoryFunc adapts a function to History.
type HistoryFunc func(url string)

// Replace calls f(url).
func (f HistoryFunc) Replace(url string) { f(url) }

// Scheduler runs fn after d.
type Scheduler func(d time.Duration, fn func())

// TimerScheduler runs fn on its own goroutine once d has elapsed.
func TimerScheduler(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// ImmediateScheduler runs fn synchronously. Used when the delay is applied
// elsewhere, e.g. by the browser executing the replacement.
func ImmediateScheduler(_ time.Duration, fn func()) {
	fn()
}

// Classify returns the action RouteChanged takes for a path it has not
// evaluated yet: ActionSkipSecure, ActionSkipExcluded or ActionTransform.
// It has no side effects.
func Classify(path string, excluded []string) Action {
	switch {
	case IsSecurePath(path):
		return ActionSkipSecure
	case IsExcluded(path, excluded):
		return ActionSkipExcluded
	}
	return ActionTransform
}

// InterceptorConfig configures an Interceptor.
type InterceptorConfig struct {
	Schedule Scheduler     // defaults to TimerScheduler
	Excluded []string      // defaults to DefaultExcludedPrefixes
	Delay    time.Duration // defaults to DefaultReplaceDelay
}

type pendingReplace struct {
	url       string
	cancelled bool
}

// Interceptor evaluates route changes of one client and rewrites the visible
// URL into its secure form. Each distinct path is evaluated once; evaluating
// the same path again is a no-op until a different path is seen.
type Interceptor struct {
	transformer *Transformer
	history     History
	schedule    Scheduler
	pending     *pendingReplace
	lastPath    string
	excluded    []string
	delay       time.Duration
	phase       Phase
	handled     bool
	mu          sync.Mutex
}

// NewInterceptor creates an interceptor writing to history.
func NewInterceptor(t *Transformer, history History, cfg InterceptorConfig) *Interceptor {
	if cfg.Schedule == nil {
		cfg.Schedule = TimerScheduler
	}
	if cfg.Excluded == nil {
		cfg.Excluded = DefaultExcludedPrefixes
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultReplaceDelay
	}
	return &Interceptor{
		transformer: t,
		history:     history,
		schedule:    cfg.Schedule,
		excluded:    cfg.Excluded,
		delay:       cfg.Delay,
	}
}

// RouteChanged evaluates the current path. Secure and excluded paths are
// left alone. Any other path gets a fresh secure URL for userID, and the
// history entry is replaced after the debounce delay. A scheduled replacement
// always fires unless Cancel is called first.
func (i *Interceptor) RouteChanged(ctx context.Context, path, userID string) Decision {
	i.mu.Lock()

	if path != i.lastPath {
		i.lastPath = path
		i.handled = false
		i.pending = nil
		i.phase = PhaseIdle
	}

	if i.handled {
		i.mu.Unlock()
		return Decision{Action: ActionNone}
	}
	i.handled = true
	if action := Classify(path, i.excluded); action != ActionTransform {
		i.mu.Unlock()
		return Decision{Action: action}
	}

	url := i.transformer.ToSecurePath(ctx, path, userID, true)
	p := &pendingReplace{url: url}
	i.pending = p
	i.phase = PhasePending
	i.mu.Unlock()

	i.schedule(i.delay, func() { i.commit(p) })

	return Decision{Action: ActionTransform, URL: url}
}

func (i *Interceptor) commit(p *pendingReplace) {
	i.mu.Lock()
	if p.cancelled {
		i.mu.Unlock()
		return
	}
	if i.pending == p {
		i.pending = nil
		i.phase = PhaseCommitted
	}
	i.mu.Unlock()

	i.history.Replace(p.url)
}

// Cancel drops a pending replacement. It reports whether one was pending.
func (i *Interceptor) Cancel() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.pending == nil {
		return false
	}
	i.pending.cancelled = true
	i.pending = nil
	i.phase = PhaseIdle
	return true
}

// Phase returns the state of the replacement for the current path.
func (i *Interceptor) Phase() Phase {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.phase
}
