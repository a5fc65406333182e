package common

import "context"

type ctxKey string

const claimsKey ctxKey = "auth/claims"

// Claims carries the identity established for a request by the hosted
// identity provider's session token.
type Claims struct {
	UserID string
	Role   string
}

// WithClaims stores the authenticated identity on the provided context.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFrom extracts the authenticated identity from the context if present.
func ClaimsFrom(ctx context.Context) (Claims, bool) {
	v := ctx.Value(claimsKey)
	if v == nil {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// UserID extracts just the authenticated user identifier from the context.
func UserID(ctx context.Context) (string, bool) {
	claims, ok := ClaimsFrom(ctx)
	if !ok || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}
