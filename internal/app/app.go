package app

import (
	"context"

	"go.uber.org/zap"

	"quotegw/internal/domain"
	"quotegw/internal/infra/config"
)

// App is the entry point used by the command line.
type App struct {
	logger *zap.Logger
}

type ServeConfig struct {
	ConfigPath string
	// ListenAddress overrides http.listenAddress when set.
	ListenAddress string
}

type ValidateConfig struct {
	ConfigPath string
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// LoadConfig reads the configuration at path. An empty path yields defaults
// with environment overrides.
func (a *App) LoadConfig(ctx context.Context, path string) (domain.Config, error) {
	return config.NewLoader(a.logger).Load(ctx, path)
}

// Serve loads configuration, builds the gateway and blocks until ctx is
// canceled.
func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	gwConfig, err := a.LoadConfig(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.ListenAddress != "" {
		gwConfig.HTTP.ListenAddress = cfg.ListenAddress
	}

	application, cleanup, err := InitializeApplication(gwConfig, LoggingConfig{Logger: a.logger})
	if err != nil {
		return err
	}
	defer cleanup()

	a.logger.Info("configuration loaded",
		zap.String("config", cfg.ConfigPath),
		zap.String("store", gwConfig.Store.Driver),
		zap.String("version", Version),
	)
	return application.Run(ctx)
}
