package middleware

import (
	"context"
	"net/http"

	"github.com/andrew/scoutchat/internal/auth"
	"github.com/andrew/scoutchat/internal/identity"
)

type contextKey string

// IdentityContextKey is the key for storing the ledger identity in request context
const IdentityContextKey contextKey = "identity"

// AccessCodeHeader carries the shared access code
const AccessCodeHeader = "X-Access-Code"

// AuthMiddleware gates requests behind the access code and resolves the
// caller's ledger identity
type AuthMiddleware struct {
	code     auth.AccessCode
	resolver identity.Resolver
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(code auth.AccessCode, resolver identity.Resolver) *AuthMiddleware {
	return &AuthMiddleware{code: code, resolver: resolver}
}

// RequireAccessCode rejects requests without the configured access code
func (m *AuthMiddleware) RequireAccessCode(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.code.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get(AccessCodeHeader) == "" {
			respondJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "missing access code",
			})
			return
		}

		if !m.code.Verify(r.Header.Get(AccessCodeHeader)) {
			respondJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "invalid access code",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Identify resolves the caller's identity into context
func (m *AuthMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := m.resolver.Resolve(r)
		ctx := context.WithValue(r.Context(), IdentityContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentityFromContext retrieves the identity from request context
func GetIdentityFromContext(ctx context.Context) string {
	id, ok := ctx.Value(IdentityContextKey).(string)
	if !ok {
		return ""
	}
	return id
}
