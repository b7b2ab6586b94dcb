// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/queit/queit/internal/appcontext"
	"codeberg.org/queit/queit/internal/htmx"
	"codeberg.org/queit/queit/internal/models"
	"codeberg.org/queit/queit/internal/secureroute"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type navResult struct {
	replaceURL string
	deferred   string
	delay      time.Duration
	header     string
	status     int
}

func serveNavigation(t *testing.T, tr *secureroute.Transformer, user *models.User, req *http.Request) navResult {
	t.Helper()

	e := echo.New()
	e.Use(withAppContext(user))
	e.Use(Environment())
	e.Use(SecureNavigation(tr, NavigationConfig{Excluded: []string{"/go/"}, Delay: 250 * time.Millisecond}))

	var res navResult
	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		res.replaceURL, _ = ctx.Value(appcontext.ReplaceURL{}).(string)
		res.deferred, _ = ctx.Value(appcontext.DeferredPath{}).(string)
		res.delay, _ = ctx.Value(appcontext.ReplaceDelay{}).(time.Duration)
		return c.NoContent(http.StatusOK)
	}
	e.Any("/*", handler)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	res.header = rec.Header().Get(htmx.HeaderReplaceURL)
	res.status = rec.Code
	return res
}

const testHints = "1920x1080%7C-60%7CiVBORw0KGgo"

// pageRequest builds a request from a browser that has reported its client hints.
func pageRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.AddCookie(&http.Cookie{Name: ClientHintCookie, Value: testHints})
	return req
}

func newNavTransformer() *secureroute.Transformer {
	return secureroute.NewTransformer(secureroute.NewStore(0), 0)
}

func TestSecureNavigation_TransformsPageLoad(t *testing.T) {
	tr := newNavTransformer()

	res := serveNavigation(t, tr, nil, pageRequest(http.MethodGet, "/article/42", nil))

	assert.Equal(t, http.StatusOK, res.status)
	assert.Regexp(t, `^/v2/\?code=[A-Za-z0-9]{16}&errorCode=[a-z0-9]{6}#article/42$`, res.replaceURL)
	assert.Equal(t, 250*time.Millisecond, res.delay)
	assert.Empty(t, res.header, "plain page loads are replaced by the shell script")
	assert.Equal(t, 1, tr.Store().Len())

	loc := secureroute.FromSecurePath(res.replaceURL)
	require.NotNil(t, loc)
	assert.Equal(t, "/article/42", loc.Path)
}

func TestSecureNavigation_BindsUser(t *testing.T) {
	tr := newNavTransformer()
	user := &models.User{ID: 7, Username: "alice"}
	req := pageRequest(http.MethodGet, "/home", nil)
	req.Header.Set("User-Agent", "test-agent")

	res := serveNavigation(t, tr, user, req)

	loc := secureroute.FromSecurePath(res.replaceURL)
	require.NotNil(t, loc)
	env := secureroute.Environment{UserAgent: "test-agent"}
	env.ApplyClientHints(testHints)
	ctx := secureroute.WithEnvironment(t.Context(), env)
	assert.True(t, tr.Store().Validate(ctx, loc.Code, "7"))
	assert.False(t, tr.Store().Validate(ctx, loc.Code, "8"))
}

func TestSecureNavigation_BoostedHtmx(t *testing.T) {
	tr := newNavTransformer()
	req := pageRequest(http.MethodGet, "/projects", nil)
	req.Header.Set(htmx.HeaderRequest, "true")
	req.Header.Set(htmx.HeaderBoosted, "true")

	res := serveNavigation(t, tr, nil, req)

	assert.NotEmpty(t, res.replaceURL)
	assert.Equal(t, res.replaceURL, res.header)
}

func TestSecureNavigation_Skips(t *testing.T) {
	partial := pageRequest(http.MethodGet, "/projects", nil)
	partial.Header.Set(htmx.HeaderRequest, "true")

	tests := []struct {
		req  *http.Request
		name string
	}{
		{name: "api route", req: pageRequest(http.MethodGet, "/api/auth/user", nil)},
		{name: "static asset", req: pageRequest(http.MethodGet, "/static/css/styles.css", nil)},
		{name: "login page", req: pageRequest(http.MethodGet, "/login", nil)},
		{name: "configured prefix", req: pageRequest(http.MethodGet, "/go/projects", nil)},
		{name: "secure url", req: pageRequest(http.MethodGet, "/v2/?code=abcdefghijklmnop&errorCode=x1y2z3", nil)},
		{name: "post", req: pageRequest(http.MethodPost, "/projects", nil)},
		{name: "htmx partial", req: partial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newNavTransformer()

			res := serveNavigation(t, tr, nil, tt.req)

			assert.Equal(t, http.StatusOK, res.status)
			assert.Empty(t, res.replaceURL)
			assert.Empty(t, res.header)
			assert.Zero(t, tr.Store().Len())
		})
	}
}

func TestSecureNavigation_DefersWithoutClientHints(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		deferred string
	}{
		{name: "page", target: "/article/42?tab=2", deferred: "/article/42?tab=2"},
		{name: "excluded", target: "/go/projects"},
		{name: "secure url", target: "/v2/?code=abcdefghijklmnop&errorCode=x1y2z3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newNavTransformer()

			res := serveNavigation(t, tr, nil, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, http.StatusOK, res.status)
			assert.Empty(t, res.replaceURL)
			assert.Empty(t, res.header)
			assert.Equal(t, tt.deferred, res.deferred)
			assert.Zero(t, tr.Store().Len())
		})
	}
}
