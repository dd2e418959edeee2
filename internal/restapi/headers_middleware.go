package restapi

import (
	"fmt"
	"net/http"
)

// CacheControlMiddleware sets Cache-Control for successful responses. A zero
// duration marks the response as not cacheable.
func CacheControlMiddleware(seconds int, next http.Handler) http.Handler {
	value := "no-cache, no-store, must-revalidate"
	if seconds > 0 {
		value = fmt.Sprintf("public, max-age=%d", seconds)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", value)
		next.ServeHTTP(w, r)
	})
}

// WithSecurityHeaders adds the headers every API response carries.
func (api *RestAPI) WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
