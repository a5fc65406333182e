package auth

import (
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenValidator validates contextual properties of session tokens issued by
// the hosted identity provider.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// Validate ensures the supplied token satisfies issuer, audience and expiry
// requirements. Signature verification happens at parse time against the
// provider's key set; this covers the claim checks.
func (v TokenValidator) Validate(tok jwt.Token, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}

	return jwt.Validate(tok, options...)
}
