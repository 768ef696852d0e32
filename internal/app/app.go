package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Parzival048/ecomreact/internal/cache"
	"github.com/Parzival048/ecomreact/internal/domain/discount"
	"github.com/Parzival048/ecomreact/internal/domain/order"
	"github.com/Parzival048/ecomreact/internal/domain/pricing"
	"github.com/Parzival048/ecomreact/internal/handler"
	"github.com/Parzival048/ecomreact/internal/storage/postgres"
	"github.com/Parzival048/ecomreact/pkg/health"
	"github.com/Parzival048/ecomreact/pkg/httpmiddleware"
)

const serviceName = "shop-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Redis is optional: without it discounts are read straight from
	// Postgres and rate limits are kept per process.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		if rdb, err = newRedis(ctx, cfg.RedisURL, m); err != nil {
			return errors.Wrap(err, "redis")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				lg.Error("Close redis", zap.Error(err))
			}
		}()
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.PingCheck("redis",
			health.ErrPinger(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		))
	} else {
		lg.Warn("Redis URL not set, discount cache disabled")
	}

	healthSvc.Start(ctx, 10*time.Second)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	discountRepo := postgres.NewDiscountRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	pricingCfg, err := cfg.Pricing.Calculator()
	if err != nil {
		return errors.Wrap(err, "pricing config")
	}
	calc := pricing.NewCalculator(pricingCfg)

	var discountCache discount.Cache
	if rdb != nil {
		discountCache = cache.NewDiscounts(rdb, cfg.Cache.DiscountsKey, cfg.Cache.DiscountsTTL)
	}
	discountService := discount.NewService(discountRepo, discountCache)

	orderMetrics, err := order.NewMetrics(m.MeterProvider().Meter("github.com/Parzival048/ecomreact/internal/domain/order"))
	if err != nil {
		return errors.Wrap(err, "order metrics")
	}
	orderService := order.NewService(productRepo, discountService, orderRepo, calc, orderMetrics)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
		productRepo,
		discountService,
		orderService,
		calc,
	)
	securityHandler := handler.NewSecurityHandler(apikeyRepo, []byte(cfg.APIKeyPepper))
	router := handler.NewRouter(h, securityHandler)
	routeFinder := handler.MakeRouteFinder(router)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", router)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			cors.Handler(cors.Options{
				AllowedOrigins:   cfg.CORS.Origins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.APIKeyHeader, httpmiddleware.RequestIDHeader},
				ExposedHeaders:   []string{httpmiddleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}, newLimiter(ctx, cfg.RateLimit, rdb)),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newRedis connects to url with tracing and metrics enabled.
func newRedis(ctx context.Context, url string, m *app.Telemetry) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse url")
	}
	rdb := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(rdb, redisotel.WithTracerProvider(m.TracerProvider())); err != nil {
		return nil, errors.Wrap(err, "instrument tracing")
	}
	if err := redisotel.InstrumentMetrics(rdb, redisotel.WithMeterProvider(m.MeterProvider())); err != nil {
		return nil, errors.Wrap(err, "instrument metrics")
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "ping")
	}
	return rdb, nil
}

// newLimiter shares windows across replicas through Redis when available.
func newLimiter(ctx context.Context, cfg RateLimitConfig, rdb *redis.Client) httpmiddleware.Limiter {
	if rdb != nil {
		return httpmiddleware.NewRedisLimiter(rdb, cfg.Prefix, cfg.Max, cfg.Window)
	}
	l := httpmiddleware.NewMemoryLimiter(cfg.Max, cfg.Window)
	go l.Run(ctx)
	return l
}
