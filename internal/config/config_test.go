package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atpstore/backend-atp/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"HASURA_URL":    "https://graphql.atpstore.se/v1/graphql",
		"REDIS_URL":     "redis://localhost:6379/0",
		"AUTH_JWKS_URL": "https://auth.atpstore.se/.well-known/jwks.json",
	}
}

func TestLoadRequiredValues(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "https://graphql.atpstore.se/v1/graphql", cfg.HasuraURL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 99, cfg.CartMaxQuantity)
	require.InDelta(t, 25.0, cfg.DefaultVATPercent, 1e-9)
	require.Equal(t, 30*time.Second, cfg.AuthClockSkew)
}

func TestLoadMissingHasuraURL(t *testing.T) {
	env := baseEnv()
	env["HASURA_URL"] = ""
	_, err := config.LoadForTests(env)
	require.Error(t, err)
}

func TestLoadMissingJWKS(t *testing.T) {
	env := baseEnv()
	env["AUTH_JWKS_URL"] = ""
	_, err := config.LoadForTests(env)
	require.Error(t, err)
}

func TestHasuraHealthzURL(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "https://graphql.atpstore.se/healthz", cfg.HasuraHealthzURL())
}

func TestOverrides(t *testing.T) {
	env := baseEnv()
	env["CART_TTL"] = "24h"
	env["CART_MAX_QUANTITY"] = "10"
	env["CONTACT_RATE_LIMIT"] = "3"
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, cfg.CartTTL)
	require.Equal(t, 10, cfg.CartMaxQuantity)
	require.EqualValues(t, 3, cfg.ContactRateLimit)
}
