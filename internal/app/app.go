// Package app wires configuration, storage, the order pipeline and the HTTP
// server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/order-pipeline/internal/domain/auth"
	"github.com/xenking/order-pipeline/internal/domain/order"
	"github.com/xenking/order-pipeline/internal/handler"
	"github.com/xenking/order-pipeline/internal/notify"
	"github.com/xenking/order-pipeline/internal/report"
	"github.com/xenking/order-pipeline/internal/storage/memory"
	"github.com/xenking/order-pipeline/internal/storage/postgres"
	redisstore "github.com/xenking/order-pipeline/internal/storage/redis"
	"github.com/xenking/order-pipeline/pkg/health"
	"github.com/xenking/order-pipeline/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the service.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("inventory", cfg.Inventory.Backend),
		zap.String("notify", cfg.Notify.Backend),
	)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	inventory, closeInventory, err := newInventory(ctx, cfg, pool, healthSvc)
	if err != nil {
		return errors.Wrap(err, "create inventory")
	}
	defer closeInventory()

	notifier, closeNotifier, err := newNotifier(cfg, healthSvc)
	if err != nil {
		return errors.Wrap(err, "create notifier")
	}
	defer closeNotifier()

	orderRepo := postgres.NewOrderRepository(pool)
	pipeline, err := order.NewPipeline(inventory, orderRepo, notifier,
		order.WithCallTimeout(cfg.Pipeline.CallTimeout),
		order.WithMeterProvider(m.MeterProvider()),
		order.WithTracerProvider(m.TracerProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create pipeline")
	}

	authn := auth.NewAuthenticator(postgres.NewAPIKeyRepository(pool), []byte(cfg.APIKeyPepper))

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           NewRouter(ctx, cfg, m, healthSvc, pipeline, orderRepo, authn),
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

// NewRouter assembles the middleware stack, health probes and /api routes.
func NewRouter(
	ctx context.Context,
	cfg *Config,
	m httpmiddleware.Telemetry,
	healthSvc *health.Health,
	orders handler.Submitter,
	reports report.Source,
	authn handler.Authenticator,
) http.Handler {
	mux := chi.NewRouter()
	mux.Get("/livez", healthSvc.LiveEndpoint)
	mux.Get("/readyz", healthSvc.ReadyEndpoint)
	mux.Mount("/api", handler.NewHandler(orders, reports).Routes(authn, httpmiddleware.LogRequests()))

	return httpmiddleware.Wrap(mux,
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Recovery(),
		httpmiddleware.RequestID(),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.Instrument("orders-api", m),
	)
}

// newInventory builds the configured stock backend. The memory backend is
// seeded from the inventory table and does not write back.
func newInventory(
	ctx context.Context,
	cfg *Config,
	pool *pgxpool.Pool,
	h *health.Health,
) (order.InventoryGateway, func(), error) {
	nop := func() {}
	switch cfg.Inventory.Backend {
	case BackendMemory:
		stock, err := postgres.NewInventoryRepository(pool).Snapshot(ctx)
		if err != nil {
			return nil, nop, err
		}
		zctx.From(ctx).Info("Loaded in-memory inventory", zap.Int("items", len(stock)))
		return memory.NewInventory(stock), nop, nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Inventory.Redis.Addr,
			Password: cfg.Inventory.Redis.Password,
			DB:       cfg.Inventory.Redis.DB,
		})
		h.AddReadinessCheck("redis", 2*time.Second, health.RedisCheck(client))
		return redisstore.NewInventory(client), func() { _ = client.Close() }, nil
	default:
		return postgres.NewInventoryRepository(pool), nop, nil
	}
}

func newNotifier(cfg *Config, h *health.Health) (order.Notifier, func(), error) {
	nop := func() {}
	switch cfg.Notify.Backend {
	case NotifySMTP:
		n, err := notify.NewSMTPNotifier(notify.SMTPConfig{
			Addr:     cfg.Notify.SMTP.Addr,
			From:     cfg.Notify.SMTP.From,
			Username: cfg.Notify.SMTP.Username,
			Password: cfg.Notify.SMTP.Password,
		})
		return n, nop, err
	case NotifyKafka:
		n, err := notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers: cfg.Notify.Kafka.Brokers,
			Topic:   cfg.Notify.Kafka.Topic,
		})
		if err != nil {
			return nil, nop, err
		}
		h.AddReadinessCheck("kafka", 5*time.Second, health.KafkaCheck(cfg.Notify.Kafka.Brokers))
		return n, func() { _ = n.Close() }, nil
	default:
		return notify.LogNotifier{}, nop, nil
	}
}
