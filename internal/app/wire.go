//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/trubax/trubax-core/internal/config"
	"github.com/trubax/trubax-core/internal/observability"
	"github.com/trubax/trubax-core/internal/repository"
	"github.com/trubax/trubax-core/internal/service"
)

func Initialize(ctx context.Context) (*App, error) {
	wire.Build(
		config.Load,
		observability.InitRuntime,
		provideLogger,
		provideRedisClient,
		provideStore,
		provideLookupCache,
		repository.NewFollowRepository,
		repository.NewSessionRepository,
		repository.NewAccessRepository,
		repository.NewAccountRepository,
		provideFollowService,
		service.NewSessionService,
		service.NewAccessService,
		provideScheduler,
		New,
	)
	return nil, nil
}
