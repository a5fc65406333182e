package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

func buildToken(t *testing.T, mutate func(b *jwt.Builder)) jwt.Token {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	b := jwt.NewBuilder().
		Subject("user_123").
		Issuer("https://clerk.atpstore.example").
		Audience([]string{"atp-store"}).
		IssuedAt(now).
		Expiration(now.Add(time.Hour))
	if mutate != nil {
		mutate(b)
	}
	tok, err := b.Build()
	require.NoError(t, err)
	return tok
}

func TestValidateAcceptsWellFormedToken(t *testing.T) {
	v := TokenValidator{Issuer: "https://clerk.atpstore.example", Audience: "atp-store"}
	tok := buildToken(t, nil)
	require.NoError(t, v.Validate(tok, time.Unix(1_700_000_000, 0).Add(time.Minute)))
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	v := TokenValidator{Issuer: "https://clerk.atpstore.example"}
	tok := buildToken(t, func(b *jwt.Builder) { b.Issuer("https://evil.example") })
	require.Error(t, v.Validate(tok, time.Unix(1_700_000_000, 0).Add(time.Minute)))
}

func TestValidateRejectsWrongAudience(t *testing.T) {
	v := TokenValidator{Audience: "atp-store"}
	tok := buildToken(t, func(b *jwt.Builder) { b.Audience([]string{"someone-else"}) })
	require.Error(t, v.Validate(tok, time.Unix(1_700_000_000, 0).Add(time.Minute)))
}

func TestValidateHonoursClockSkewOnExpiry(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	tok := buildToken(t, nil)
	afterExpiry := base.Add(time.Hour + 30*time.Second)

	strict := TokenValidator{}
	require.Error(t, strict.Validate(tok, afterExpiry))

	lenient := TokenValidator{ClockSkew: time.Minute}
	require.NoError(t, lenient.Validate(tok, afterExpiry))
}

func TestValidateRejectsNilToken(t *testing.T) {
	require.Error(t, TokenValidator{}.Validate(nil, time.Now()))
}

func TestClaimsFromToken(t *testing.T) {
	tok := buildToken(t, func(b *jwt.Builder) { b.Claim("role", "admin") })
	claims := claimsFromToken(tok)
	require.Equal(t, "user_123", claims.UserID)
	require.Equal(t, "admin", claims.Role)

	tok = buildToken(t, func(b *jwt.Builder) {
		b.Claim(hasuraClaimsKey, map[string]any{"x-hasura-default-role": "admin"})
	})
	require.Equal(t, "admin", claimsFromToken(tok).Role)

	tok = buildToken(t, nil)
	require.Equal(t, DefaultRole, claimsFromToken(tok).Role)
}
