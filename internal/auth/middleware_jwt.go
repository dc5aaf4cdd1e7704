package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// CodeUnauthorized is the error code of 401 responses
const CodeUnauthorized = "UNAUTHORIZED"

// publicPaths never require a token
var publicPaths = map[string]bool{
	"/health":        true,
	"/api/v1/health": true,
	"/metrics":       true,
}

// JWTMiddleware provides JWT authentication middleware
func JWTMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for OPTIONS requests (CORS preflight)
			if r.Method == http.MethodOptions || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			// Browsers can't set headers on websockets or iframe loads, so
			// those endpoints also accept ?token=...
			if authHeader == "" && acceptsQueryToken(r.URL.Path) {
				if token := r.URL.Query().Get("token"); token != "" {
					authHeader = "Bearer " + token
				}
			}
			if authHeader == "" {
				unauthorized(w, "Missing authorization header")
				return
			}

			tokenString, err := ExtractToken(authHeader)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			claims, err := ValidateToken(secret, tokenString)
			if err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(SetClaims(r.Context(), claims)))
		})
	}
}

func acceptsQueryToken(path string) bool {
	return strings.HasSuffix(path, "/ws") || strings.HasPrefix(path, "/dashboard")
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="agilemetrics"`)
	w.WriteHeader(http.StatusUnauthorized)
	body := map[string]interface{}{
		"error":   http.StatusText(http.StatusUnauthorized),
		"message": message,
		"code":    CodeUnauthorized,
	}
	// Set by the request ID middleware when it runs first
	if id := w.Header().Get("X-Request-Id"); id != "" {
		body["request_id"] = id
	}
	json.NewEncoder(w).Encode(body)
}
