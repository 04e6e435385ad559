package app

import (
	"context"

	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/pkg/logger"
)

// Start starts all background services.
func (a *Application) Start(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Start()
		logger.Info("Scheduler started", zap.Int("jobs", len(a.Scheduler.Jobs())))
	}
	return nil
}

// Shutdown gracefully shuts down all application components.
func (a *Application) Shutdown() {
	shutdownCtx := context.Background()

	if a.Scheduler != nil {
		if err := a.Scheduler.Shutdown(); err != nil {
			logger.Error("failed to stop scheduler", zap.Error(err))
		}
		logger.Info("Scheduler stopped")
	}

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(shutdownCtx); err != nil {
			logger.Warn("module shutdown returned error",
				zap.String("module", mod.Name()),
				zap.Error(err),
			)
		}
	}

	if a.infra != nil {
		a.infra.Close()
	}
}
