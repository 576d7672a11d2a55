package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/flowershop/internal/api"
	"github.com/xenking/flowershop/internal/catalog"
	"github.com/xenking/flowershop/internal/domain/order"
	"github.com/xenking/flowershop/internal/events"
	"github.com/xenking/flowershop/internal/storage"
	"github.com/xenking/flowershop/pkg/health"
	"github.com/xenking/flowershop/pkg/httpmiddleware"
)

const serviceName = "flowershop-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	store, err := storage.Open(ctx, storage.Config{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("backend", string(store.Backend)),
	)

	if cfg.Seed.OnStartup {
		if err := seedCatalog(ctx, lg, store); err != nil {
			return err
		}
	}

	opts := []order.Option{
		order.WithCommitTimeout(cfg.Orders.CommitTimeout),
		order.WithTelemetry(m.TracerProvider(), m.MeterProvider()),
	}
	if len(cfg.Events.Brokers) > 0 {
		publisher, err := events.NewKafka(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			return errors.Wrap(err, "create kafka publisher")
		}
		defer publisher.Close()
		opts = append(opts, order.WithPublisher(publisher))
		lg.Info("Order events enabled",
			zap.Strings("brokers", cfg.Events.Brokers),
			zap.String("topic", cfg.Events.Topic),
		)
	}
	orderService, err := order.NewService(store.Flowers, store.Coupons, store.Orders, opts...)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}

	healthSvc := health.New()
	healthSvc.Add(health.Readiness, "database", health.PingCheck(store), health.WithTimeout(5*time.Second))
	healthSvc.Add(health.Liveness, "goroutines", health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
		Skip:   httpmiddleware.SkipPaths("/livez", "/readyz"),
	})
	go limiter.Run(ctx)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: newHandler(cfg, lg, m, handlerDeps{
			store:   store,
			orders:  orderService,
			health:  healthSvc,
			limiter: limiter,
		}),
	}

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

type handlerDeps struct {
	store   *storage.Store
	orders  *order.Service
	health  *health.Health
	limiter *httpmiddleware.Limiter
}

// newHandler mounts the health probes and the API on one mux behind the
// shared middleware chain.
func newHandler(cfg *Config, lg *zap.Logger, t httpmiddleware.TelemetryProvider, d handlerDeps) http.Handler {
	h := api.NewHandler(
		api.HandlerConfig{
			ImageBaseURL: cfg.ImageBaseURL,
			CORS: api.CORSConfig{
				Origins:          cfg.CORS.Origins,
				AllowCredentials: cfg.CORS.AllowCredentials,
			},
		},
		d.store.Flowers,
		d.store.Coupons,
		d.orders,
	)

	mux := http.NewServeMux()
	d.health.Register(mux)
	mux.Handle("/api/", h.Router())

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.RateLimit(d.limiter),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument(serviceName, t),
		httpmiddleware.LogRequests(),
	)
}

func seedCatalog(ctx context.Context, lg *zap.Logger, store *storage.Store) error {
	data, err := catalog.Embedded()
	if err != nil {
		return errors.Wrap(err, "load embedded catalog")
	}
	res, err := catalog.Seed(ctx, store.Catalog, data)
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	lg.Info("Catalog seeded",
		zap.Int("shops", res.Shops),
		zap.Int("flowers", res.Flowers),
		zap.Int("coupons", res.Coupons),
	)
	return nil
}
