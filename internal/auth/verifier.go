package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/atpstore/backend-atp/internal/common"
)

// DefaultRole is assumed when a verified token carries no role claim.
const DefaultRole = "user"

// hasuraClaimsKey is the namespaced claim object the data layer reads its
// per-request roles from. The role is mirrored there when present.
const hasuraClaimsKey = "https://hasura.io/jwt/claims"

// Config describes how to reach and trust the identity provider.
type Config struct {
	JWKSURL         string
	Issuer          string
	Audience        string
	ClockSkew       time.Duration
	RefreshInterval time.Duration
}

// Verifier checks identity-provider session tokens against the provider's
// published key set and yields the claims this service acts on.
type Verifier struct {
	jwksURL   string
	cache     *jwk.Cache
	validator TokenValidator
	now       func() time.Time
}

// NewVerifier constructs a verifier with a self-refreshing key-set cache
// bound to the provided context's lifetime.
func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.JWKSURL) == "" {
		return nil, errors.New("auth: jwks url is required")
	}
	refresh := cfg.RefreshInterval
	if refresh <= 0 {
		refresh = 15 * time.Minute
	}
	cache := jwk.NewCache(ctx)
	if err := cache.Register(cfg.JWKSURL, jwk.WithMinRefreshInterval(refresh)); err != nil {
		return nil, fmt.Errorf("auth: register jwks: %w", err)
	}
	return &Verifier{
		jwksURL: cfg.JWKSURL,
		cache:   cache,
		validator: TokenValidator{
			Issuer:    cfg.Issuer,
			Audience:  cfg.Audience,
			ClockSkew: cfg.ClockSkew,
		},
		now: time.Now,
	}, nil
}

// Verify parses and validates a raw session token and extracts the identity
// claims used for authorization decisions.
func (v *Verifier) Verify(ctx context.Context, raw string) (common.Claims, error) {
	if v == nil {
		return common.Claims{}, errors.New("auth: verifier not configured")
	}
	keySet, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return common.Claims{}, fmt.Errorf("auth: fetch key set: %w", err)
	}
	tok, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKeySet(keySet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return common.Claims{}, fmt.Errorf("auth: parse token: %w", err)
	}
	if err := v.validator.Validate(tok, v.now()); err != nil {
		return common.Claims{}, fmt.Errorf("auth: validate token: %w", err)
	}
	return claimsFromToken(tok), nil
}

func claimsFromToken(tok jwt.Token) common.Claims {
	claims := common.Claims{UserID: tok.Subject(), Role: DefaultRole}
	if role, ok := stringClaim(tok, "role"); ok {
		claims.Role = role
		return claims
	}
	// fall back to the namespaced claims object the data layer consumes
	if raw, ok := tok.Get(hasuraClaimsKey); ok {
		if nested, ok := raw.(map[string]any); ok {
			if role, ok := nested["x-hasura-default-role"].(string); ok && role != "" {
				claims.Role = role
			}
		}
	}
	return claims
}

func stringClaim(tok jwt.Token, name string) (string, bool) {
	raw, ok := tok.Get(name)
	if !ok {
		return "", false
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
