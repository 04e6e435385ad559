// Package app is the composition root: it builds the modules, the router and
// the scheduler from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"batchtrack.io/tracker/internal/api/handlers"
	"batchtrack.io/tracker/internal/app/modules"
	"batchtrack.io/tracker/internal/config"
	"batchtrack.io/tracker/internal/jobs"
	"batchtrack.io/tracker/internal/pkg/worker"
	"batchtrack.io/tracker/internal/store"
)

// Application holds composed application dependencies.
type Application struct {
	Config    *config.Config
	Router    *gin.Engine
	Store     *store.Store
	Pools     *worker.Pools
	Scheduler *jobs.Scheduler
	Modules   []modules.Module

	infra *modules.Infrastructure
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	return bootstrap(ctx, cfg, nil)
}

func bootstrap(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg, clock)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	ticketModule := modules.NewTicketModule(infra)
	allModules := []modules.Module{
		ticketModule,
		modules.NewAdminModule(infra, ticketModule.Tickets()),
		modules.NewNotificationModule(infra),
	}

	scheduler, err := jobs.NewScheduler(infra.Schedule.Zone, infra.Clock)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	for _, mod := range allModules {
		if err := mod.RegisterJobs(scheduler); err != nil {
			_ = scheduler.Shutdown()
			infra.Close()
			return nil, fmt.Errorf("register %s jobs: %w", mod.Name(), err)
		}
	}

	server := handlers.NewServer(modules.NewServerDeps(infra, allModules))

	return &Application{
		Config:    cfg,
		Router:    newRouter(cfg, server),
		Store:     infra.Store,
		Pools:     infra.Pools,
		Scheduler: scheduler,
		Modules:   allModules,
		infra:     infra,
	}, nil
}
