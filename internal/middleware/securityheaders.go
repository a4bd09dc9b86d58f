package middleware

import (
	"net/http"
)

// APIContentSecurityPolicy forbids everything; JSON responses load nothing.
const APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"

// WebContentSecurityPolicy lets the browse page load poster art from the catalog's image host.
const WebContentSecurityPolicy = "default-src 'self'; img-src 'self' https://image.tmdb.org; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'; form-action 'self'"

// SecurityHeaders sets common security response headers. An empty csp means
// APIContentSecurityPolicy. When hsts is true (serving HTTPS) Strict-Transport-Security is added.
func SecurityHeaders(hsts bool, csp string) func(http.Handler) http.Handler {
	if csp == "" {
		csp = APIContentSecurityPolicy
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "same-origin")
			w.Header().Set("Content-Security-Policy", csp)
			if hsts {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
