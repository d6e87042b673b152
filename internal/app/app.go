package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/orders-ms/internal/domain/order"
	"github.com/xenking/orders-ms/internal/rpc"
	"github.com/xenking/orders-ms/internal/storage/postgres"
	"github.com/xenking/orders-ms/pkg/health"
)

// Run creates all dependencies, subscribes the command server, starts the ops
// listener, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("nats_url", cfg.NATS.URL),
		zap.String("ops_addr", cfg.OpsAddr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Message transport.
	conn, err := nats.Connect(cfg.NATS.URL,
		nats.Name("orders-ms"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			lg.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			lg.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return errors.Wrap(err, "connect nats")
	}
	defer conn.Close()

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddReadinessCheck("nats", time.Second, func(context.Context) error {
		if status := conn.Status(); status != nats.CONNECTED {
			return errors.Errorf("nats connection is %s", status)
		}
		return nil
	})
	healthSvc.Start(ctx, 10*time.Second)

	// Domain wiring: repository + product lookup behind the service,
	// handler + server on the transport.
	catalog := rpc.NewProductClient(conn, cfg.NATS.ProductsSubject, cfg.NATS.LookupTimeout, lg)
	orderService := order.NewService(postgres.NewOrderRepository(pool), catalog)
	handler := rpc.NewHandler(orderService, lg)

	server, err := rpc.NewServer(conn, handler, lg, m.MeterProvider().Meter("orders-rpc"), rpc.ServerConfig{
		QueueGroup:    cfg.NATS.QueueGroup,
		HandleTimeout: cfg.NATS.HandleTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "create rpc server")
	}
	if err := server.Start(ctx); err != nil {
		return errors.Wrap(err, "start rpc server")
	}
	healthSvc.SetReady(true)

	// Ops listener: probe endpoints only.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)

	opsServer := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		Addr:              cfg.OpsAddr,
		Handler:           mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Ops listener started", zap.String("addr", cfg.OpsAddr))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "ops server")
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown: stop advertising readiness, let in-flight
		// requests land, drain subscriptions, then stop the ops listener.
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		if err := server.Drain(); err != nil {
			lg.Error("RPC drain error", zap.Error(err))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			lg.Error("Ops server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	return g.Wait()
}
