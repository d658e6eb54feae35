package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"safestep/internal/logger"
)

// AllowedOrigin returns a check that accepts requests without an Origin
// header (non-browser clients), same-host pages and the listed origins.
// "*" in origins accepts everything.
func AllowedOrigin(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	all := false
	for _, o := range origins {
		if o == "*" {
			all = true
		}
		allowed[strings.ToLower(strings.TrimSuffix(o, "/"))] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || all {
			return true
		}
		if allowed[strings.ToLower(origin)] {
			return true
		}

		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// RequireOrigin rejects state-changing requests (anything but GET, HEAD and
// OPTIONS) whose Origin is not allowed.
func RequireOrigin(allowed func(r *http.Request) bool, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				if !allowed(r) {
					logger.Warning("Rejected %s %s from origin %s", r.Method, r.URL.Path, r.Header.Get("Origin"))
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
