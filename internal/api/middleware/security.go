package middleware

import (
	"net/http"

	"github.com/carbontrack/carbontrack/internal/api/models"
)

// Content security policies.
const (
	// APIContentSecurityPolicy allows nothing; JSON responses load no resources.
	APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

	// PageContentSecurityPolicy allows the inline stylesheet and same-origin
	// form posts of the HTML page. Scripts stay disallowed.
	PageContentSecurityPolicy = "default-src 'none'; style-src 'unsafe-inline'; form-action 'self'; base-uri 'none'; frame-ancestors 'none'"
)

// baseSecurityHeaders are sent on every API and page response.
var baseSecurityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "geolocation=(), camera=(), microphone=()"},
}

// SecurityHeaders sets the hardening headers with the API policy.
func SecurityHeaders(next http.Handler) http.Handler {
	return withSecurityHeaders(APIContentSecurityPolicy, next)
}

// PageSecurityHeaders sets the hardening headers with the HTML page policy.
func PageSecurityHeaders(next http.Handler) http.Handler {
	return withSecurityHeaders(PageContentSecurityPolicy, next)
}

func withSecurityHeaders(csp string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range baseSecurityHeaders {
			h.Set(kv[0], kv[1])
		}
		h.Set("Content-Security-Policy", csp)
		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects requests that a load balancer reports as plain HTTP
// through X-Forwarded-Proto. Requests without the header pass, which covers
// direct connections in local development.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			proto := r.Header.Get("X-Forwarded-Proto")
			if proto != "" && proto != "https" {
				deny(w, r, models.NewTLSRequired, "This endpoint requires HTTPS")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
