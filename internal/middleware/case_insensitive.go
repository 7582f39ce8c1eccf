package middleware

import (
	"net/http"
	"strings"
)

// NormalizePath lowercases the URL path and drops a trailing slash before
// routing, so /API/Inspections/ and /api/inspections reach the same handler.
// Path parameters are lowercase hex ids or UUIDs, which survive the rewrite.
func NormalizePath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := strings.ToLower(r.URL.Path)
		if len(p) > 1 {
			p = strings.TrimRight(p, "/")
			if p == "" {
				p = "/"
			}
		}
		r.URL.Path = p
		r.URL.RawPath = ""
		next.ServeHTTP(w, r)
	})
}
