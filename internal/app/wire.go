//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"quotegw/internal/domain"
)

func InitializeApplication(cfg domain.Config, logging LoggingConfig) (*Application, func(), error) {
	wire.Build(AppSet)
	return nil, nil, nil
}
