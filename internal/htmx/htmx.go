// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package htmx detects htmx requests and sets the history headers the
// navigation layer answers them with.
package htmx

import (
	"net/http"
)

// Request headers.
const (
	HeaderRequest = "HX-Request"
	HeaderBoosted = "HX-Boosted"
)

// Response headers.
const (
	HeaderRedirect   = "HX-Redirect"
	HeaderReplaceURL = "HX-Replace-Url"
)

// Request contains the htmx details of a request.
type Request struct {
	// IsHtmx is true if the HX-Request header is "true".
	IsHtmx bool

	// IsBoosted is true if the HX-Boosted header is "true".
	IsBoosted bool
}

// ParseRequest extracts htmx information from request headers.
func ParseRequest(r *http.Request) *Request {
	return &Request{
		IsHtmx:    r.Header.Get(HeaderRequest) == "true",
		IsBoosted: r.Header.Get(HeaderBoosted) == "true",
	}
}

// IsPageNavigation reports whether the request loads a page: a plain browser
// request or a boosted htmx request. Partial htmx swaps are not navigations.
func (r *Request) IsPageNavigation() bool {
	return !r.IsHtmx || r.IsBoosted
}

// SetReplaceURL asks htmx to replace the current history entry with url.
func SetReplaceURL(h http.Header, url string) {
	h.Set(HeaderReplaceURL, url)
}

// SetRedirect asks htmx to perform a full client-side redirect to url.
func SetRedirect(h http.Header, url string) {
	h.Set(HeaderRedirect, url)
}
