// Package guard gates the HTML views on the presence of a session marker.
//
// The check is presence only: the marker is never validated, so the guard
// keeps signed-out browsers away from views that would fail anyway. It is
// not an authorization boundary.
package guard

import (
	"log/slog"
	"net/http"
	"net/url"
)

const (
	// CookieName is the marker cookie the login view writes next to its
	// localStorage entry.
	CookieName = "session"
	// LoginPath is where unmarked requests are sent.
	LoginPath = "/login"
)

// Middleware redirects to loginPath unless the request carries a non-empty
// session marker.
type Middleware struct {
	loginPath string
	logger    *slog.Logger
}

// New returns a guard redirecting to loginPath. An empty path means
// LoginPath.
func New(loginPath string, logger *slog.Logger) *Middleware {
	if loginPath == "" {
		loginPath = LoginPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{loginPath: loginPath, logger: logger}
}

// HasMarker reports whether r carries a session marker.
func HasMarker(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	return err == nil && c.Value != ""
}

// Protect wraps next with the marker check.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !HasMarker(r) {
			m.logger.DebugContext(r.Context(), "No session marker, redirecting to login",
				"path", r.URL.Path,
				"component", "guard")
			target := m.loginPath + "?next=" + url.QueryEscape(r.URL.Path)
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
