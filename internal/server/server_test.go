// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"codeberg.org/queit/queit/internal/config"
	"codeberg.org/queit/queit/internal/i18n"
	"codeberg.org/queit/queit/internal/secureroute"
	"codeberg.org/queit/queit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserAgent   = "Mozilla/5.0 (X11; Linux x86_64) queit-test"
	testClientHints = "1920x1080%7C-60%7CiVBORw0KGgo"
)

var (
	replaceMeta  = regexp.MustCompile(`<meta name="queit-replace-url" content="([^"]+)" data-delay="(\d+)">`)
	deferredMeta = regexp.MustCompile(`<meta name="queit-secure-path" content="([^"]+)" data-delay="(\d+)">`)
)

func newTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 8080, BaseURL: "http://localhost:8080", MaxBodySize: 1},
		Session: config.SessionConfig{
			CookieName: "_session",
			MaxAge:     3600,
			HashKey:    "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		},
		Nav: config.NavigationConfig{
			Expiry:       secureroute.DefaultExpiry,
			ReplaceDelay: secureroute.DefaultReplaceDelay,
			LinkCooldown: time.Minute,
		},
	}
}

// browser is a cookie-keeping HTTP client that never follows redirects.
type browser struct {
	t      *testing.T
	client *http.Client
	base   string
	csrf   string
}

func newTestServer(t *testing.T) (*browser, *app) {
	t.Helper()
	return newTestServerWith(t, newTestConfig())
}

func newTestServerWith(t *testing.T, cfg *config.Config) (*browser, *app) {
	t.Helper()
	require.NoError(t, i18n.Init())

	db, _ := testutil.NewTestDB(t)
	a, err := newApp(cfg, db)
	require.NoError(t, err)

	srv := httptest.NewServer(a.echo())
	t.Cleanup(srv.Close)

	b := newBrowser(t, srv.URL)
	b.reportClientHints()
	return b, a
}

func newBrowser(t *testing.T, base string) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(method, path, body string, header map[string]string) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, b.base+path, strings.NewReader(body))
	require.NoError(b.t, err)
	req.Header.Set("User-Agent", testUserAgent)
	req.Header.Set("Accept-Language", "en-US")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.csrf != "" {
		req.Header.Set("X-CSRF-Token", b.csrf)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)

	b.pickCSRF()
	return resp, string(data)
}

func (b *browser) get(path string) (*http.Response, string) {
	return b.do(http.MethodGet, path, "", nil)
}

func (b *browser) post(path, body string) (*http.Response, string) {
	return b.do(http.MethodPost, path, body, nil)
}

// reportClientHints sets the cookie the shell script writes on load.
func (b *browser) reportClientHints() {
	u, _ := url.Parse(b.base)
	b.client.Jar.SetCookies(u, []*http.Cookie{{Name: "_fp", Value: testClientHints, Path: "/"}})
}

func (b *browser) pickCSRF() {
	u, _ := url.Parse(b.base)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == "_csrf" {
			b.csrf = c.Value
		}
	}
}

func TestPageLoad_SchedulesSecureURL(t *testing.T) {
	b, a := newTestServer(t)

	resp, body := b.get("/article/42")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := replaceMeta.FindStringSubmatch(body)
	require.NotNil(t, m, "shell should announce the secure URL")
	assert.Equal(t, "100", m[2])

	secure := html.UnescapeString(m[1])
	assert.Regexp(t, `^/v2/\?code=[A-Za-z0-9]{16}&errorCode=[a-z0-9]{6}#article/42$`, secure)
	assert.Equal(t, 1, a.transformer.Store().Len())

	// The code is bound to this browser.
	loc := secureroute.FromSecurePath(secure)
	require.NotNil(t, loc)
	resp, body = b.post("/api/nav/validate", `{"code":"`+loc.Code+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"valid":true}`, body)
}

func TestPageLoad_FirstVisitDefersToShell(t *testing.T) {
	b, a := newTestServer(t)
	fresh := newBrowser(t, b.base)

	resp, body := fresh.get("/article/42")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, replaceMeta.FindStringSubmatch(body))
	m := deferredMeta.FindStringSubmatch(body)
	require.NotNil(t, m, "shell should be told which path to secure")
	assert.Equal(t, "/article/42", html.UnescapeString(m[1]))
	assert.Zero(t, a.transformer.Store().Len(), "no code is minted without client hints")

	// The shell reports its hints, then secures the path through the API.
	fresh.reportClientHints()
	resp, body = fresh.post("/api/nav/secure", `{"path":"/article/42"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var secured struct {
		URL  string `json:"url"`
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &secured))
	assert.True(t, strings.HasSuffix(secured.URL, "#article/42"))

	_, body = fresh.post("/api/nav/validate", `{"code":"`+secured.Code+`"}`)
	assert.JSONEq(t, `{"valid":true}`, body)
}

func TestPageLoad_ExcludedFirstVisitIsNotDeferred(t *testing.T) {
	b, _ := newTestServer(t)
	fresh := newBrowser(t, b.base)

	_, body := fresh.get("/v2/?code=abcdefghijklmnop&errorCode=x1y2z3")

	assert.NotContains(t, body, "queit-secure-path")
}

func TestPageLoad_Root(t *testing.T) {
	b, _ := newTestServer(t)

	_, body := b.get("/")

	m := replaceMeta.FindStringSubmatch(body)
	require.NotNil(t, m)
	assert.True(t, strings.HasSuffix(html.UnescapeString(m[1]), "#"), "root maps to an empty fragment")
}

func TestPageLoad_SecureURLIsLeftAlone(t *testing.T) {
	b, a := newTestServer(t)

	resp, body := b.get("/v2/?code=abcdefghijklmnop&errorCode=x1y2z3")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<!doctype html>")
	assert.NotContains(t, body, "queit-replace-url")
	assert.Zero(t, a.transformer.Store().Len())
}

func TestPageLoad_TrailingSlashRedirect(t *testing.T) {
	b, a := newTestServer(t)

	resp, _ := b.get("/article/42/")

	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/article/42", resp.Header.Get("Location"))
	assert.Zero(t, a.transformer.Store().Len())
}

func TestPageLoad_BoostedHtmx(t *testing.T) {
	b, _ := newTestServer(t)

	resp, _ := b.do(http.MethodGet, "/projects", "", map[string]string{"HX-Request": "true", "HX-Boosted": "true"})

	assert.True(t, secureroute.IsSecurePath(resp.Header.Get("HX-Replace-Url")))
}

func TestExcludedRoutes(t *testing.T) {
	b, a := newTestServer(t)

	resp, body := b.get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","codes":0}`, body)

	resp, body = b.get("/static/js/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "replaceState")

	resp, body = b.get("/api/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, `"error"`)

	assert.Zero(t, a.transformer.Store().Len())
}

func TestExcludedRoutes_CustomPrefixes(t *testing.T) {
	cfg := newTestConfig()
	cfg.Nav.ExcludedPrefixes = []string{"/custom/"}
	b, a := newTestServerWith(t, cfg)

	resp, body := b.get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","codes":0}`, body)

	resp, _ = b.get("/custom/page")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, a.transformer.Store().Len())

	resp, _ = b.get("/go/projects/7")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, secureroute.IsSecurePath(resp.Header.Get("Location")))
	assert.Equal(t, 1, a.transformer.Store().Len())
}

func TestNavAPI_RequiresCSRF(t *testing.T) {
	b, _ := newTestServer(t)

	resp, _ := b.post("/api/nav/secure", `{"path":"/home"}`)

	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, resp.StatusCode)
}

func TestNavAPI_SecureAndResolve(t *testing.T) {
	b, _ := newTestServer(t)
	b.get("/") // obtain the CSRF cookie

	resp, body := b.post("/api/nav/secure", `{"path":"/dashboard/settings","force_new":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var secured struct {
		URL  string `json:"url"`
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &secured))

	_, body = b.get("/api/nav/resolve?url=" + url.QueryEscape(secured.URL))

	var resolved struct {
		Path    string `json:"path"`
		Code    string `json:"code"`
		Matched bool   `json:"matched"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &resolved))
	assert.True(t, resolved.Matched)
	assert.Equal(t, "/dashboard/settings", resolved.Path)
	assert.Equal(t, secured.Code, resolved.Code)
}

func TestLinkFollow_Debounced(t *testing.T) {
	b, _ := newTestServer(t)
	b.get("/") // obtain the client id cookie

	resp, _ := b.get("/go/projects/7")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := secureroute.FromSecurePath(resp.Header.Get("Location"))
	require.NotNil(t, loc)
	assert.Equal(t, "/projects/7", loc.Path)

	resp, _ = b.get("/go/projects/7")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAccountFlow_BindsCodesToUser(t *testing.T) {
	b, a := newTestServer(t)

	_, body := b.get("/api/auth/user")
	assert.JSONEq(t, `{"user":null}`, body)

	resp, _ := b.post("/auth/register", `{"username":"alice","password":"`+testutil.TestPassword+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, body = b.get("/api/auth/user")
	assert.Contains(t, body, `"username":"alice"`)

	_, body = b.get("/inbox")
	m := replaceMeta.FindStringSubmatch(body)
	require.NotNil(t, m)
	loc := secureroute.FromSecurePath(html.UnescapeString(m[1]))
	require.NotNil(t, loc)

	user, err := a.repo.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	ctx := secureroute.WithEnvironment(context.Background(), secureroute.Environment{
		UserAgent: testUserAgent,
		Language:  "en-US",
	})
	assert.True(t, a.transformer.Store().Validate(ctx, loc.Code, user.Key()))
	assert.False(t, a.transformer.Store().Validate(ctx, loc.Code, "someone-else"))

	resp, _ = b.post("/auth/logout", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = b.get("/api/auth/user")
	assert.JSONEq(t, `{"user":null}`, body)
}

func TestPruneLinks_StopsWithContext(t *testing.T) {
	tr := secureroute.NewTransformer(secureroute.NewStore(0), 0)
	links := secureroute.NewLinks(tr, time.Millisecond)
	links.For("idle")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pruneLinks(ctx, links, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return links.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruneLinks did not stop")
	}
}
