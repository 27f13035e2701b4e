package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	riskconfig "lendingrisk/config"
	"lendingrisk/native/healthfactor"
	"lendingrisk/native/lending"
	"lendingrisk/observability/logging"
	telemetry "lendingrisk/observability/otel"
	"lendingrisk/services/riskd/cache"
	"lendingrisk/services/riskd/config"
	"lendingrisk/services/riskd/middleware"
	"lendingrisk/services/riskd/server"
	"lendingrisk/services/riskd/storage"
)

const rateLimitKey = "api"

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/riskd/config.yaml", "path to riskd configuration file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("riskd: load config: %v", err)
	}

	logger, logCloser := logging.SetupWithOptions("riskd", cfg.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer logCloser.Close()
	logger.Info("riskd starting", sanitizedAttrs(cfg.Sanitized())...)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "riskd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Observability.Endpoint,
		Insecure:    cfg.Observability.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Observability.Headers),
		Metrics:     cfg.Observability.Metrics,
		Traces:      cfg.Observability.Traces,
		SampleRatio: cfg.Observability.SampleRatio,
	})
	if err != nil {
		log.Fatalf("riskd: init telemetry: %v", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	risk, err := riskconfig.LoadOrCreateRisk(cfg.RiskFile)
	if err != nil {
		log.Fatalf("riskd: load risk params: %v", err)
	}
	engine, err := lending.NewEngine(risk.Params, healthfactor.FromBalances)
	if err != nil {
		log.Fatalf("riskd: risk engine: %v", err)
	}
	engine.SetPauses(risk.Pauses)

	db, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("riskd: open storage: %v", err)
	}
	var store storage.Store = db
	if cfg.Redis.Addr != "" {
		client, err := cache.Dial(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("riskd: %v", err)
		}
		defer client.Close()
		store = cache.New(db, client, cache.Options{
			TTL:    cfg.Redis.TTL.Duration,
			Prefix: cfg.Redis.Prefix,
			Logger: logger,
		})
		logger.Info("snapshot cache enabled", slog.String("redis_addr", cfg.Redis.Addr))
	}
	defer store.Close()

	authenticator := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    cfg.Auth.Enabled,
		HMACSecret: cfg.Auth.HMACSecret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ScopeClaim: cfg.Auth.ScopeClaim,
		ClockSkew:  cfg.Auth.ClockSkew.Duration,
	}, logger)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RatePerSecond > 0 {
		limiter = middleware.NewRateLimiter(map[string]middleware.RateLimit{
			rateLimitKey: {
				RatePerSecond: cfg.RateLimit.RatePerSecond,
				Burst:         cfg.RateLimit.Burst,
				DefaultTokens: 1,
			},
		}, logger)
	}

	router, err := server.New(server.Config{
		Engine:        engine,
		Store:         store,
		Logger:        logger,
		Authenticator: authenticator,
		RateLimiter:   limiter,
		RateLimitKey:  rateLimitKey,
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName: "riskd",
			LogRequests: cfg.Logging.Level == "debug",
			Enabled:     true,
		}, logger),
		CORS:         middleware.CORSConfig{AllowedOrigins: cfg.CORS.AllowedOrigins},
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})
	if err != nil {
		log.Fatalf("riskd: configure routes: %v", err)
	}

	handler := http.Handler(router)
	if cfg.Observability.Traces {
		handler = otelhttp.NewHandler(router, "riskd")
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Duration,
		ReadTimeout:       cfg.Server.ReadTimeout.Duration,
		WriteTimeout:      cfg.Server.WriteTimeout.Duration,
		IdleTimeout:       cfg.Server.IdleTimeout.Duration,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("riskd listening", slog.String("listen", cfg.ListenAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server error", slog.Any("error", err))
			stop()
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", slog.Any("error", err))
	}
}

func sanitizedAttrs(values map[string]string) []any {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	attrs := make([]any, 0, len(keys))
	for _, key := range keys {
		attrs = append(attrs, slog.String(key, values[key]))
	}
	return attrs
}
