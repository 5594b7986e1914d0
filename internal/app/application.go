package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quotegw/internal/domain"
	"quotegw/internal/infra/gateway"
	"quotegw/internal/infra/observer"
	"quotegw/internal/infra/stream"
	"quotegw/internal/infra/telemetry"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	// healthProbeKey is read, never written; its absence is a healthy answer.
	healthProbeKey = "quotegw:health"
)

// Application wires the gateway runtime and its dependencies.
type Application struct {
	cfg      domain.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	store    domain.Store
	observer *observer.Registry
	hub      *stream.Hub
	facade   *gateway.Facade
	mcp      *gateway.MCPServer
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Config   domain.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Store    domain.Store
	Observer *observer.Registry
	Hub      *stream.Hub
	Facade   *gateway.Facade
	MCP      *gateway.MCPServer
}

// NewApplication constructs the gateway application.
func NewApplication(opts ApplicationOptions) *Application {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Application{
		cfg:      opts.Config,
		logger:   logger,
		registry: opts.Registry,
		store:    opts.Store,
		observer: opts.Observer,
		hub:      opts.Hub,
		facade:   opts.Facade,
		mcp:      opts.MCP,
	}
}

// Handler returns the full HTTP surface, including the MCP endpoint.
func (a *Application) Handler() http.Handler {
	return a.facade.Handler(gateway.HTTPOptions{
		AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
		MCPPath:        a.cfg.HTTP.MCPPath,
		MCP:            a.mcp.Handler(),
	})
}

// Run listens on the configured address and serves until ctx is canceled.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTP.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.HTTP.ListenAddress, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the gateway on ln and the observability server alongside it.
// On shutdown, open streams are ended before in-flight observer pushes are
// given their timeout to finish.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	a.prepare(ctx)

	server := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	// Shutdown does not wait on hijacked or streaming MCP GETs by itself.
	server.RegisterOnShutdown(func() {
		if err := a.mcp.Close(); err != nil {
			a.logger.Warn("mcp session close failed", zap.Error(err))
		}
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.logger.Info("gateway listening", zap.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		_ = a.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("gateway shutdown error", zap.Error(err))
		}
		return nil
	})
	if addr := a.cfg.Observability.ListenAddress; addr != "" {
		group.Go(func() error {
			return telemetry.StartHTTPServer(groupCtx, telemetry.HTTPServerOptions{
				Addr:          addr,
				EnableMetrics: a.cfg.Observability.Metrics,
				EnableHealthz: true,
				Health:        a.probeStore,
				Registry:      a.registry,
			}, a.logger)
		})
	}

	err := group.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Observer.NotifyTimeout()+time.Second)
	defer cancel()
	if drainErr := a.observer.Drain(drainCtx); drainErr != nil {
		a.logger.Warn("observer pushes still in flight at shutdown", zap.Error(drainErr))
	}
	a.logger.Info("gateway stopped")
	return err
}

// prepare seeds the observer slot and the MCP resource list. Neither failure
// prevents the gateway from serving.
func (a *Application) prepare(ctx context.Context) {
	if endpoint := a.cfg.Observer.Endpoint; endpoint != "" {
		if _, err := a.observer.Register(endpoint); err != nil {
			a.logger.Warn("configured observer rejected", telemetry.EndpointField(endpoint), zap.Error(err))
		} else {
			a.logger.Info("observer registered from config", telemetry.EndpointField(endpoint))
		}
	}
	if err := a.mcp.Sync(ctx); err != nil {
		a.logger.Warn("mcp resource sync failed", zap.Error(err))
	}
}

// probeStore costs one point read regardless of how many keys are stored.
func (a *Application) probeStore(ctx context.Context) error {
	_, _, err := a.store.Get(ctx, healthProbeKey)
	return err
}
