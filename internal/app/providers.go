package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/catalog"
	"quotegw/internal/infra/events"
	"quotegw/internal/infra/fetcher"
	"quotegw/internal/infra/gateway"
	"quotegw/internal/infra/idgen"
	"quotegw/internal/infra/observer"
	"quotegw/internal/infra/store"
	"quotegw/internal/infra/stream"
	"quotegw/internal/infra/telemetry"
	"quotegw/internal/infra/tools"
)

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	return registry
}

func NewMetrics(cfg domain.Config, registry *prometheus.Registry) domain.Metrics {
	if !cfg.Observability.Metrics {
		return telemetry.NewNoopMetrics()
	}
	return telemetry.NewPrometheusMetrics(registry)
}

// NewStore opens the configured adapter. The cleanup closes it.
func NewStore(cfg domain.Config, metrics domain.Metrics, logger *zap.Logger) (domain.Store, func(), error) {
	kv, err := store.Open(store.Options{
		Driver:      cfg.Store.Driver,
		BoltPath:    cfg.Store.Bolt.Path,
		BoltBucket:  cfg.Store.Bolt.Bucket,
		PostgresURL: cfg.Store.Postgres.URL,
		Metrics:     metrics,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("store opened", zap.String("driver", cfg.Store.Driver))
	cleanup := func() {
		if err := kv.Close(); err != nil {
			logger.Warn("store close failed", zap.Error(err))
		}
	}
	return kv, cleanup, nil
}

func NewFetcher(cfg domain.Config, metrics domain.Metrics, logger *zap.Logger) (domain.Fetcher, error) {
	f, err := fetcher.New(fetcher.Options{
		BaseURL: cfg.Fetcher.BaseURL,
		Timeout: cfg.Fetcher.Timeout(),
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}
	return f, nil
}

func NewObserverRegistry(cfg domain.Config, metrics domain.Metrics, logger *zap.Logger) *observer.Registry {
	return observer.NewRegistry(observer.Options{
		Timeout: cfg.Observer.NotifyTimeout(),
		Logger:  logger,
		Metrics: metrics,
	})
}

func NewStreamHub(cfg domain.Config, logger *zap.Logger) *stream.Hub {
	return stream.NewHub(cfg.Stream.BufferSize, logger)
}

func NewStreamServer(cfg domain.Config, hub *stream.Hub, metrics domain.Metrics, logger *zap.Logger) *stream.Server {
	return stream.NewServer(hub, stream.ServerOptions{
		Heartbeat:     cfg.Stream.HeartbeatInterval(),
		DeliverEvents: cfg.Stream.DeliverEvents,
		Logger:        logger,
		Metrics:       metrics,
	})
}

func NewKeyGenerator(cfg domain.Config) domain.KeyGenerator {
	return idgen.NewQuoteKeys(cfg.Quotes.UniqueSuffix)
}

// NewPublisher builds the event fan-out: the stream hub when streams carry
// events, and NATS when a server URL is configured. The cleanup closes every
// target.
func NewPublisher(cfg domain.Config, hub *stream.Hub, metrics domain.Metrics, logger *zap.Logger) (*events.Fanout, func(), error) {
	var targets []events.Target
	if cfg.Stream.DeliverEvents {
		targets = append(targets, events.Target{Name: "stream", Publisher: hub})
	}
	if cfg.Events.NATSURL != "" {
		bus, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			return nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		logger.Info("nats publisher connected", zap.String("subject", cfg.Events.Subject))
		targets = append(targets, events.Target{Name: "nats", Publisher: bus})
	}
	fanout := events.NewFanout(logger, metrics, targets...)
	cleanup := func() {
		if err := fanout.Close(); err != nil {
			logger.Warn("publisher close failed", zap.Error(err))
		}
	}
	return fanout, cleanup, nil
}

func NewQuoteService(
	fetch domain.Fetcher,
	kv domain.Store,
	obs *observer.Registry,
	publisher *events.Fanout,
	keys domain.KeyGenerator,
	logger *zap.Logger,
) *tools.QuoteService {
	return tools.NewQuoteService(tools.QuoteServiceOptions{
		Fetcher:   fetch,
		Store:     kv,
		Notifier:  obs,
		Publisher: publisher,
		Keys:      keys,
		Logger:    logger,
	})
}

func NewToolRegistry(quotes *tools.QuoteService, metrics domain.Metrics, logger *zap.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry(logger, metrics)
	if err := registry.Register(tools.NewAddQuoteTool(quotes)); err != nil {
		return nil, err
	}
	return registry, nil
}

func NewCatalog(kv domain.Store, logger *zap.Logger) *catalog.Catalog {
	return catalog.New(kv, logger)
}

func NewFacade(
	kv domain.Store,
	cat *catalog.Catalog,
	registry *tools.Registry,
	quotes *tools.QuoteService,
	obs *observer.Registry,
	streams *stream.Server,
	logger *zap.Logger,
) *gateway.Facade {
	return gateway.NewFacade(gateway.Options{
		Store:    kv,
		Catalog:  cat,
		Tools:    registry,
		Quotes:   quotes,
		Observer: obs,
		Stream:   streams,
		Logger:   logger,
	})
}

// NewMCPServer builds the MCP surface and attaches it to the fan-out so
// newly written keys become resources.
func NewMCPServer(facade *gateway.Facade, publisher *events.Fanout, logger *zap.Logger) *gateway.MCPServer {
	server := gateway.NewMCPServer(facade, logger)
	publisher.Attach(events.Target{Name: "mcp", Publisher: server})
	return server
}
