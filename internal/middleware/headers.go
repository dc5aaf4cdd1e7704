package middleware

import (
	"net/http"
	"strings"
)

/* SecurityHeadersMiddleware sets browser hardening headers; frames are allowed from the same origin for the chart view */
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}

/* CORSMiddleware applies the configured cross-origin policy and answers preflight requests */
func CORSMiddleware(allowedOrigins, allowedMethods, allowedHeaders []string) func(http.Handler) http.Handler {
	methods := strings.Join(allowedMethods, ", ")
	headers := strings.Join(allowedHeaders, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := false
			allowAll := false

			for _, allowedOrigin := range allowedOrigins {
				if allowedOrigin == "*" {
					allowAll = true
					allowed = true
					break
				} else if allowedOrigin == origin {
					allowed = true
					break
				}
			}

			if allowed {
				switch {
				case allowAll && origin == "":
					w.Header().Set("Access-Control-Allow-Origin", "*")
				case origin != "":
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)

			// Preflight
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
