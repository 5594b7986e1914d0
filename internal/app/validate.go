package app

import (
	"context"

	"go.uber.org/zap"
)

// ValidateConfig validates the configuration at the provided path.
func (a *App) ValidateConfig(ctx context.Context, cfg ValidateConfig) error {
	logger := NewLogger(NewLogging(LoggingConfig{Logger: a.logger}))

	gwConfig, err := a.LoadConfig(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		zap.String("store", gwConfig.Store.Driver),
		zap.String("listen", gwConfig.HTTP.ListenAddress),
	)
	return nil
}
