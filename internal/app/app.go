package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/burnroom/internal/broker"
	"github.com/vovakirdan/burnroom/internal/config"
	"github.com/vovakirdan/burnroom/internal/core"
	"github.com/vovakirdan/burnroom/internal/metrics"
	"github.com/vovakirdan/burnroom/internal/reaper"
	"github.com/vovakirdan/burnroom/internal/store"
	redisstore "github.com/vovakirdan/burnroom/internal/store/redis"
	"github.com/vovakirdan/burnroom/internal/store/sqlite"
	"github.com/vovakirdan/burnroom/internal/telemetry"
	transporthttp "github.com/vovakirdan/burnroom/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	broker          broker.Broker
	reaper          *reaper.Reaper
	store           store.Store
	shutdownTracing telemetry.Shutdown
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	clk := clock.New()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	st, err := openStore(ctx, cfg.Store, clk)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("driver", cfg.Store.Driver).Msg("store initialized")

	br, err := openBroker(ctx, cfg.Broker, logger)
	if err != nil {
		_ = st.Close()
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("init broker: %w", err)
	}
	logger.Info().Str("driver", cfg.Broker.Driver).Msg("broker initialized")

	m := metrics.New()
	hub := core.NewHub(logger)
	server := transporthttp.NewServer(transporthttp.Deps{
		Hub:     hub,
		Store:   st,
		Broker:  br,
		Metrics: m,
		Clock:   clk,
	}, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		broker:          br,
		reaper:          reaper.New(st, br, m, clk, cfg.ReapInterval, logger),
		store:           st,
		shutdownTracing: shutdownTracing,
		log:             logger,
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, clk clock.Clock) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreSQLite, "":
		return sqlite.New(cfg.SQLitePath, sqlite.WithClock(clk))
	case config.StoreRedis:
		return redisstore.New(ctx, cfg.RedisAddr, clk)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func openBroker(ctx context.Context, cfg config.BrokerConfig, logger *zerolog.Logger) (broker.Broker, error) {
	switch cfg.Driver {
	case config.BrokerLocal, "":
		return broker.NewLocal(0), nil
	case config.BrokerRedis:
		return broker.NewRedis(ctx, cfg.RedisAddr, logger)
	case config.BrokerNATS:
		return broker.NewNATS(cfg.NATSURL, logger)
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Driver)
	}
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)
	go a.relay(ctx)
	go a.reaper.Run(ctx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// relay feeds broker deliveries, from this or any other instance, to local subscribers.
func (a *App) relay(ctx context.Context) {
	err := a.broker.Run(ctx, func(_ context.Context, d broker.Delivery) {
		ev := core.Event{Kind: core.ParseEventKind(d.Event), Channel: d.Channel}
		if err := a.hub.Publish(ev); err != nil {
			a.log.Debug().Err(err).Str("channel", d.Channel).Msg("dropping delivery")
		}
	})
	if err != nil {
		a.log.Error().Err(err).Msg("broker stopped")
	}
}

// cleanup closes the broker, database and other resources.
func (a *App) cleanup() {
	defer a.flushTraces()

	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close broker")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

// flushTraces exports buffered spans, including those of the shutdown itself.
func (a *App) flushTraces() {
	if a.shutdownTracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()
	if err := a.shutdownTracing(ctx); err != nil {
		a.log.Warn().Err(err).Msg("failed to flush traces")
	}
}
