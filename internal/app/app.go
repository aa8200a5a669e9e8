package app

import (
	"context"
	"log/slog"

	"github.com/trubax/trubax-core/internal/config"
	"github.com/trubax/trubax-core/internal/observability"
	"github.com/trubax/trubax-core/internal/service"
	"github.com/trubax/trubax-core/internal/store"
)

// App aggregates the wired core: the three lifecycle services, the cleanup
// scheduler and the observability runtime. Callers embed it into whatever
// surface they expose; the core itself has none.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Store         store.Store
	Follows       *service.FollowService
	Sessions      *service.SessionService
	Accesses      *service.AccessService
	Scheduler     *service.CleanupScheduler
	Observability *observability.Runtime
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	st store.Store,
	follows *service.FollowService,
	sessions *service.SessionService,
	accesses *service.AccessService,
	scheduler *service.CleanupScheduler,
	runtime *observability.Runtime,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Store:         st,
		Follows:       follows,
		Sessions:      sessions,
		Accesses:      accesses,
		Scheduler:     scheduler,
		Observability: runtime,
	}
}

// StartSweeper runs the cleanup scheduler until the context is canceled.
func (a *App) StartSweeper(ctx context.Context) {
	go a.Scheduler.Run(ctx)
}

// Shutdown flushes the observability pipelines.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Observability.Shutdown(ctx)
}
