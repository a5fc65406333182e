package gql

import "context"

type sessionTokenKey struct{}

// WithSessionToken stores the caller's raw session token on the context so
// operations run under the data layer's per-user authorization rather than
// the service's own credentials.
func WithSessionToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionTokenKey{}, token)
}

func sessionTokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionTokenKey{}).(string)
	return token, ok && token != ""
}
