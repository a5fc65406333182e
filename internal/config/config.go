package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	// hosted GraphQL data layer
	HasuraURL         string
	HasuraAdminSecret string

	// hosted identity provider
	AuthJWKSURL     string
	AuthIssuer      string
	AuthAudience    string
	AuthClockSkew   time.Duration
	IdentityAPIURL  string
	IdentityAPIKey  string
	AdminEmail      string

	// cart and catalog
	CartTTL           time.Duration
	CartMaxQuantity   int
	DefaultVATPercent float64
	CatalogCacheTTL   time.Duration
	CatalogPageLimit  int
	CatalogMaxLimit   int

	// request guards
	IdempotencyTTL     time.Duration
	ContactRatePeriod  time.Duration
	ContactRateLimit   int64
	AdminRateWindow    time.Duration
	AdminRateMax       int

	// outbound resilience
	UpstreamTimeout     time.Duration
	UpstreamMaxAttempts int
	UpstreamBaseBackoff time.Duration

	// smtp submission
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		HasuraURL:         k.String("HASURA_URL"),
		HasuraAdminSecret: k.String("HASURA_ADMIN_SECRET"),

		AuthJWKSURL:    k.String("AUTH_JWKS_URL"),
		AuthIssuer:     k.String("AUTH_ISSUER"),
		AuthAudience:   k.String("AUTH_AUDIENCE"),
		AuthClockSkew:  parseDuration(k.String("AUTH_CLOCK_SKEW"), "30s"),
		IdentityAPIURL: k.String("IDENTITY_API_URL"),
		IdentityAPIKey: k.String("IDENTITY_API_KEY"),
		AdminEmail:     valueOrDefault(k.String("ADMIN_EMAIL"), "info@atpstore.se"),

		CartTTL:           parseDuration(k.String("CART_TTL"), "168h"),
		CartMaxQuantity:   int(k.Int64("CART_MAX_QUANTITY")),
		DefaultVATPercent: k.Float64("DEFAULT_VAT_PERCENT"),
		CatalogCacheTTL:   parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CatalogPageLimit:  int(k.Int64("CATALOG_PAGE_LIMIT")),
		CatalogMaxLimit:   int(k.Int64("CATALOG_MAX_LIMIT")),

		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		ContactRatePeriod: parseDuration(k.String("CONTACT_RATE_PERIOD"), "1h"),
		ContactRateLimit:  k.Int64("CONTACT_RATE_LIMIT"),
		AdminRateWindow:   parseDuration(k.String("ADMIN_RATE_WINDOW"), "1m"),
		AdminRateMax:      int(k.Int64("ADMIN_RATE_MAX")),

		UpstreamTimeout:     parseDuration(k.String("UPSTREAM_TIMEOUT"), "10s"),
		UpstreamMaxAttempts: int(k.Int64("UPSTREAM_MAX_ATTEMPTS")),
		UpstreamBaseBackoff: parseDuration(k.String("UPSTREAM_BASE_BACKOFF"), "100ms"),

		SMTPAddr:     k.String("SMTP_ADDR"),
		SMTPUsername: k.String("SMTP_USERNAME"),
		SMTPPassword: k.String("SMTP_PASSWORD"),
		SMTPFrom:     valueOrDefault(k.String("SMTP_FROM"), "noreply@atpstore.se"),

		OTLPEndpoint: k.String("OTLP_ENDPOINT"),
	}

	if cfg.CartMaxQuantity <= 0 {
		cfg.CartMaxQuantity = 99
	}
	if cfg.DefaultVATPercent <= 0 {
		cfg.DefaultVATPercent = 25
	}
	if cfg.CatalogPageLimit <= 0 {
		cfg.CatalogPageLimit = 20
	}
	if cfg.CatalogMaxLimit <= 0 {
		cfg.CatalogMaxLimit = 100
	}
	if cfg.ContactRateLimit <= 0 {
		cfg.ContactRateLimit = 5
	}
	if cfg.AdminRateMax <= 0 {
		cfg.AdminRateMax = 30
	}
	if cfg.UpstreamMaxAttempts <= 0 {
		cfg.UpstreamMaxAttempts = 3
	}

	if cfg.HasuraURL == "" {
		return nil, errors.New("HASURA_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.AuthJWKSURL == "" {
		return nil, errors.New("AUTH_JWKS_URL is required")
	}

	return cfg, nil
}

// HasuraHealthzURL derives the data layer health endpoint from the GraphQL
// endpoint.
func (c *Config) HasuraHealthzURL() string {
	base := strings.TrimSpace(c.HasuraURL)
	base = strings.TrimSuffix(base, "/v1/graphql")
	base = strings.TrimRight(base, "/")
	if base == "" {
		return ""
	}
	return base + "/healthz"
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
