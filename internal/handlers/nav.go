// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/queit/queit/internal/htmx"
	"codeberg.org/queit/queit/internal/secureroute"
	"github.com/labstack/echo/v4"
)

// NavHandlers exposes the secure navigation layer to the browser.
type NavHandlers struct {
	transformer *secureroute.Transformer
	links       *secureroute.Links
}

// NewNav creates the navigation handlers.
func NewNav(t *secureroute.Transformer, links *secureroute.Links) *NavHandlers {
	return &NavHandlers{transformer: t, links: links}
}

// SecureRequest is the request body of Secure.
type SecureRequest struct {
	Path     string `json:"path" form:"path"`
	ForceNew bool   `json:"force_new" form:"force_new"`
}

// SecureResponse is the response body of Secure.
type SecureResponse struct {
	URL  string `json:"url"`
	Code string `json:"code"`
}

// Secure turns a logical path into a secure URL for the current user.
func (h *NavHandlers) Secure(c echo.Context) error {
	var req SecureRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "error_bad_request")
	}
	if !validPath(req.Path) {
		return jsonError(c, http.StatusBadRequest, "error_invalid_path")
	}

	url := h.transformer.ToSecurePath(c.Request().Context(), req.Path, userID(c), req.ForceNew)
	resp := SecureResponse{URL: url}
	if loc := secureroute.FromSecurePath(url); loc != nil {
		resp.Code = loc.Code
	}
	return c.JSON(http.StatusOK, resp)
}

// ResolveResponse is the response body of Resolve.
type ResolveResponse struct {
	Path      string `json:"path"`
	Code      string `json:"code"`
	ErrorCode string `json:"error_code"`
	Matched   bool   `json:"matched"`
}

// Resolve parses a secure URL. Anything else is returned unchanged as the
// logical path with matched=false.
func (h *NavHandlers) Resolve(c echo.Context) error {
	raw := c.QueryParam("url")
	loc := secureroute.FromSecurePath(raw)
	if loc == nil {
		return c.JSON(http.StatusOK, ResolveResponse{Path: raw})
	}
	return c.JSON(http.StatusOK, ResolveResponse{
		Path:      loc.Path,
		Code:      loc.Code,
		ErrorCode: loc.ErrorCode,
		Matched:   true,
	})
}

// ValidateRequest is the request body of Validate.
type ValidateRequest struct {
	Code string `json:"code" form:"code"`
}

// Validate checks a code against the current user and browser.
func (h *NavHandlers) Validate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "error_bad_request")
	}

	valid := h.transformer.Store().Validate(c.Request().Context(), req.Code, userID(c))
	return c.JSON(http.StatusOK, map[string]bool{"valid": valid})
}

// Follow handles a link activation on /go/<path>. The browser is sent to a
// fresh secure URL with a full navigation. Repeated activations within the
// cooldown are answered with 204 and no navigation.
func (h *NavHandlers) Follow(c echo.Context) error {
	path := "/" + strings.TrimPrefix(c.Param("*"), "/")
	if q := c.QueryString(); q != "" {
		path += "?" + q
	}

	key := ""
	if cc := appContext(c); cc != nil {
		key = cc.DebounceKey()
	}
	if key == "" {
		key = "ip:" + c.RealIP()
	}

	var target string
	accepted := h.links.Follow(c.Request().Context(), key, path, userID(c), func(url string) {
		target = url
	})
	if !accepted {
		slog.DebugContext(c.Request().Context(), "link_debounced", "path", path)
		return c.NoContent(http.StatusNoContent)
	}

	if htmx.ParseRequest(c.Request()).IsHtmx {
		htmx.SetRedirect(c.Response().Header(), target)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// validPath accepts absolute local paths only.
func validPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.ContainsAny(p, "\r\n")
}
