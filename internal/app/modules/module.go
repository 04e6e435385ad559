// Package modules contains the dependency modules of the composition root.
// Each module owns one area of the tracker and contributes its handlers'
// dependencies and scheduled jobs.
package modules

import (
	"context"

	"batchtrack.io/tracker/internal/api/handlers"
	"batchtrack.io/tracker/internal/jobs"
)

// Module represents a domain-specific dependency unit in the composition root.
type Module interface {
	// Name returns a stable module identifier for logging/debugging.
	Name() string

	// ContributeServerDeps injects module-owned dependencies into the HTTP server deps.
	ContributeServerDeps(*handlers.ServerDeps)

	// RegisterJobs adds module jobs to the shared scheduler.
	RegisterJobs(*jobs.Scheduler) error

	// Shutdown performs module-local graceful cleanup.
	Shutdown(context.Context) error
}
