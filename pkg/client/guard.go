package client

import (
	"context"
	"net/url"
	"strings"
)

// Route is an entry of the guard's route table. Path segments starting
// with ':' match any single segment.
type Route struct {
	Name         string
	Path         string
	RequiresAuth bool
	GuestOnly    bool
}

// Decision is the outcome of a navigation. An empty RedirectTo means the
// target may be rendered.
type Decision struct {
	Route      *Route
	RedirectTo string
}

// Allowed reports whether the navigation proceeds to its target.
func (d Decision) Allowed() bool {
	return d.RedirectTo == ""
}

// DefaultRoutes is the route table of the bizdesk front end.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "home", Path: "/"},
		{Name: "login", Path: "/login", GuestOnly: true},
		{Name: "auth-callback", Path: "/auth-callback"},
		{Name: "analytics", Path: "/analytics", RequiresAuth: true},
		{Name: "projects", Path: "/projects", RequiresAuth: true},
		{Name: "customers", Path: "/customers", RequiresAuth: true},
		{Name: "customer", Path: "/customers/:id", RequiresAuth: true},
		{Name: "settings", Path: "/settings", RequiresAuth: true},
	}
}

// Guard decides, before a view renders, whether the session may see it.
type Guard struct {
	session   *Session
	routes    []Route
	loginPath string
	homePath  string
}

// GuardOption customizes a Guard.
type GuardOption func(*Guard)

// WithLoginPath sets where unauthenticated navigations are diverted.
func WithLoginPath(path string) GuardOption {
	return func(g *Guard) { g.loginPath = path }
}

// WithHomePath sets where authenticated users leaving guest-only views go.
func WithHomePath(path string) GuardOption {
	return func(g *Guard) { g.homePath = path }
}

// NewGuard creates a Guard over routes. A nil routes uses DefaultRoutes.
func NewGuard(session *Session, routes []Route, opts ...GuardOption) *Guard {
	if routes == nil {
		routes = DefaultRoutes()
	}
	g := &Guard{
		session:   session,
		routes:    routes,
		loginPath: "/login",
		homePath:  "/",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Navigate decides the navigation to target. A protected route reached
// with a token but no profile triggers one profile fetch first; if that
// does not authenticate the session the navigation goes to the login view
// with the original target in the redirect query parameter.
func (g *Guard) Navigate(ctx context.Context, target string) Decision {
	route := g.Match(target)
	if route == nil {
		return Decision{}
	}

	if route.RequiresAuth && !g.session.IsAuthenticated() {
		if g.session.Token() != "" && g.session.User() == nil {
			// The failure is kept in LastError; the redirect below covers it.
			_ = g.session.FetchUser(ctx)
		}
		if !g.session.IsAuthenticated() {
			return Decision{
				Route:      route,
				RedirectTo: g.loginPath + "?redirect=" + url.QueryEscape(target),
			}
		}
	}

	if route.GuestOnly && g.session.IsAuthenticated() {
		return Decision{Route: route, RedirectTo: g.homePath}
	}
	return Decision{Route: route}
}

// Match returns the first route matching target, ignoring any query or
// fragment, or nil.
func (g *Guard) Match(target string) *Route {
	path := target
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for i := range g.routes {
		if pathMatches(g.routes[i].Path, path) {
			return &g.routes[i]
		}
	}
	return nil
}

func pathMatches(pattern, path string) bool {
	want := splitPath(pattern)
	got := splitPath(path)
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, ":") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
