package middleware

import (
	"net/http"
	"slices"
)

// CORS is a middleware that adds CORS headers
type CORS struct {
	allowedOrigins []string
}

// NewCORS creates a new CORS middleware
func NewCORS(allowedOrigins []string) *CORS {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &CORS{allowedOrigins: allowedOrigins}
}

func (c *CORS) allowOrigin(origin string) string {
	if slices.Contains(c.allowedOrigins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(c.allowedOrigins, origin) {
		return origin
	}
	return ""
}

// Handle wraps an HTTP handler with CORS support
func (c *CORS) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set CORS headers
		if origin := c.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+AccessCodeHeader+", "+RequestIDHeader+", X-Client-Screen, X-Client-Timezone")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
