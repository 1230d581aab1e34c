package livereload

import (
	"errors"
	"fmt"
	"net/url"
)

// Session identifies which push endpoint to contact and which page instance
// is listening. Route and Hash are injected when the page is rendered; Path
// is the page's current location, unescaped.
type Session struct {
	Route string
	Hash  string
	Path  string
}

// SessionForPage builds a session for the page at pageURL.
func SessionForPage(pageURL, route, hash string) (Session, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return Session{}, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return Session{Route: route, Hash: hash, Path: path}, nil
}

// Endpoint returns the push address {route}?hash={hash}&uri={path}. A
// relative route is resolved against base, normally the page URL.
func (s Session) Endpoint(base string) (string, error) {
	if s.Route == "" {
		return "", errors.New("session has no route")
	}
	route, err := url.Parse(s.Route)
	if err != nil {
		return "", fmt.Errorf("invalid route %q: %w", s.Route, err)
	}
	if !route.IsAbs() {
		if base == "" {
			return "", fmt.Errorf("route %q is relative and no base URL was given", s.Route)
		}
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid base URL %q: %w", base, err)
		}
		route = b.ResolveReference(route)
	}

	q := route.Query()
	q.Set("hash", s.Hash)
	q.Set("uri", s.Path)
	route.RawQuery = q.Encode()
	route.Fragment = ""
	return route.String(), nil
}
