package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/atpstore/backend-atp/internal/admin"
	"github.com/atpstore/backend-atp/internal/auth"
	"github.com/atpstore/backend-atp/internal/cart"
	"github.com/atpstore/backend-atp/internal/catalog"
	"github.com/atpstore/backend-atp/internal/checkout"
	"github.com/atpstore/backend-atp/internal/common"
	"github.com/atpstore/backend-atp/internal/config"
	"github.com/atpstore/backend-atp/internal/contact"
	"github.com/atpstore/backend-atp/internal/gql"
	"github.com/atpstore/backend-atp/internal/health"
	"github.com/atpstore/backend-atp/internal/obs"
	"github.com/atpstore/backend-atp/internal/order"
	"github.com/atpstore/backend-atp/internal/ratelimit"
	"github.com/atpstore/backend-atp/internal/resilience"
	"github.com/atpstore/backend-atp/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "atpstore")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "atp-storefront-api",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	validate := validator.New()

	outboundTransport := otelhttp.NewTransport(http.DefaultTransport)

	hasuraBreaker := resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("hasura").WithLogger(logger)
	hasuraTransport := resilience.HTTPClient{
		Client:      &http.Client{Timeout: cfg.UpstreamTimeout, Transport: outboundTransport},
		Breaker:     hasuraBreaker,
		BaseBackoff: cfg.UpstreamBaseBackoff,
		MaxAttempts: cfg.UpstreamMaxAttempts,
		Jitter:      0.2,
		Timeout:     cfg.UpstreamTimeout,
		Target:      "hasura",
		Logger:      &logger,
	}
	gql.SetFactory(func() (*gql.Client, error) {
		client := &gql.Client{
			Endpoint: cfg.HasuraURL,
			HTTP:     hasuraTransport,
			Logger:   logger,
		}
		if cfg.HasuraAdminSecret != "" {
			client.Headers = map[string]string{"X-Hasura-Admin-Secret": cfg.HasuraAdminSecret}
		}
		return client, nil
	})
	gqlClient, err := gql.Default()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise graphql client")
	}
	observer := &gql.Observer{Notifier: gql.NopNotifier{}, Logger: logger}

	verifier, err := auth.NewVerifier(context.Background(), auth.Config{
		JWKSURL:   cfg.AuthJWKSURL,
		Issuer:    cfg.AuthIssuer,
		Audience:  cfg.AuthAudience,
		ClockSkew: cfg.AuthClockSkew,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	authMiddleware := auth.Middleware{Verifier: verifier}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		GQL:          gqlClient,
		Observer:     observer,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		DefaultLimit: cfg.CatalogPageLimit,
		MaxLimit:     cfg.CatalogMaxLimit,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})

	cartService := &cart.Service{
		Store:             cart.Store{R: redisClient, TTL: cfg.CartTTL},
		MaxQuantity:       cfg.CartMaxQuantity,
		DefaultVATPercent: cfg.DefaultVATPercent,
	}
	cartHandler := cart.NewHandler(cart.HandlerConfig{Service: cartService, Validate: validate})

	checkoutService := &checkout.Service{
		GQL:      gqlClient,
		Observer: observer,
		Carts:    cartService,
		Logger:   logger,
	}
	checkoutHandler := checkout.NewHandler(checkout.HandlerConfig{Service: checkoutService, Validate: validate})

	orderService := &order.Service{GQL: gqlClient, Observer: observer}
	orderHandler := order.NewHandler(order.HandlerConfig{Service: orderService})

	identityBreaker := resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("identity").WithLogger(logger)
	identityTransport := resilience.HTTPClient{
		Client:      &http.Client{Timeout: cfg.UpstreamTimeout, Transport: outboundTransport},
		Breaker:     identityBreaker,
		BaseBackoff: cfg.UpstreamBaseBackoff,
		MaxAttempts: cfg.UpstreamMaxAttempts,
		Jitter:      0.2,
		Timeout:     cfg.UpstreamTimeout,
		Target:      "identity",
		Logger:      &logger,
	}
	adminService := &admin.Service{
		Directory: &admin.Client{BaseURL: cfg.IdentityAPIURL, APIKey: cfg.IdentityAPIKey, HTTP: identityTransport},
		Logger:    logger,
	}
	adminHandler := admin.NewHandler(admin.HandlerConfig{Service: adminService})

	limiterStore, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "limiter"})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise limiter store")
	}
	contactLimiter := limiter.New(limiterStore, limiter.Rate{
		Period: cfg.ContactRatePeriod,
		Limit:  cfg.ContactRateLimit,
	})

	taskRedis, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}
	taskClient := asynq.NewClient(taskRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	enqueuer := &tasks.Enqueuer{Client: taskClient, Logger: logger}

	contactService := &contact.Service{
		Limiter:    contactLimiter,
		Enqueuer:   enqueuer,
		AdminEmail: cfg.AdminEmail,
	}
	contactHandler := contact.NewHandler(contact.HandlerConfig{Service: contactService, Validate: validate})

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	adminLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return "admin:" + clientKey(r) },
			Window: cfg.AdminRateWindow,
			Max:    cfg.AdminRateMax,
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("admin rate limiter") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", true)
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker: health.Probes{
			Redis:      redisClient,
			HealthzURL: cfg.HasuraHealthzURL(),
			HTTP:       &http.Client{Timeout: time.Second},
		},
		UpstreamTimeout: envDurationMillis("HEALTH_READY_UPSTREAM_TIMEOUT_MS", 500),
		RedisTimeout:    envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{slug}", catalogHandler.ProductDetail)
		v.Get("/products/{slug}/related", catalogHandler.Related)
		v.Get("/categories", catalogHandler.Categories)
		v.Get("/brands", catalogHandler.Brands)

		v.Post("/contact", contactHandler.Submit)

		v.Route("/carts", func(c chi.Router) {
			c.Get("/{cartId}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Post("/{cartId}/items", cartHandler.AddItem)
				g.Patch("/{cartId}/items/{itemId}", cartHandler.UpdateItem)
				g.Delete("/{cartId}/items/{itemId}", cartHandler.RemoveItem)
				g.Delete("/{cartId}/items", cartHandler.Clear)
			})
		})

		v.With(authMiddleware.RequireAuth, idem.Middleware).Post("/checkout", checkoutHandler.Submit)

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)
			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/{orderNumber}", orderHandler.Get)
		})

		v.Route("/admin", func(a chi.Router) {
			a.Use(authMiddleware.RequireAuth)
			a.Use(authMiddleware.RequireRole("admin"))
			a.Get("/users", adminHandler.ListUsers)
			a.Get("/users/{id}", adminHandler.GetUser)
			a.With(adminLimit.Middleware).Patch("/users/{id}", adminHandler.UpdateRole)
			a.With(adminLimit.Middleware).Delete("/users/{id}", adminHandler.DeleteUser)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func clientKey(r *http.Request) string {
	if userID, ok := common.UserID(r.Context()); ok {
		return userID
	}
	return common.ClientIP(r)
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
