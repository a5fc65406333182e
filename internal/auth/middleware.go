package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/atpstore/backend-atp/internal/common"
	"github.com/atpstore/backend-atp/internal/gql"
)

var errNoToken = errors.New("auth: token missing")

// TokenVerifier is the contract the middleware needs from a Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (common.Claims, error)
}

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Verifier TokenVerifier
}

// Authenticate attaches claims to the request context when a valid token is
// present, and lets the request continue anonymously otherwise.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth enforces that a valid token is present. An absent or invalid
// identity is an authentication failure, distinct from the authorization
// failure RequireRole reports.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.authenticateRequest(r)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole enforces that the authenticated identity carries the given
// role. Must run inside RequireAuth.
func (m Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := common.ClaimsFrom(r.Context())
			if !ok {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			if claims.Role != role {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, error) {
	if m.Verifier == nil {
		return r.Context(), errors.New("auth: verifier not configured")
	}
	token := extractToken(r)
	if token == "" {
		return r.Context(), errNoToken
	}
	claims, err := m.Verifier.Verify(r.Context(), token)
	if err != nil {
		return r.Context(), err
	}
	ctx := common.WithClaims(r.Context(), claims)
	// carry the raw token so data-layer operations run as this user
	ctx = gql.WithSessionToken(ctx, token)
	return ctx, nil
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
