// Package handlers implements the HTTP API of the batch tracker.
//
// Handlers are thin: they bind the request, call a service and either render
// the result or hand an error to middleware.ErrorHandler via c.Error().
// Route registration lives in internal/app.
package handlers

import (
	"context"
	"time"

	"batchtrack.io/tracker/internal/pkg/timeutil"
	"batchtrack.io/tracker/internal/pkg/worker"
	"batchtrack.io/tracker/internal/report"
	"batchtrack.io/tracker/internal/service"
)

// HealthCheck probes one dependency for the readiness endpoint.
type HealthCheck func(ctx context.Context) error

// Server holds the handler dependencies.
type Server struct {
	tickets  *service.TicketService
	admin    *service.AdminService
	pools    *worker.Pools
	schedule timeutil.Schedule
	labels   report.Labels
	checks   map[string]HealthCheck
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Tickets  *service.TicketService
	Admin    *service.AdminService
	Pools    *worker.Pools // optional, reported by readiness
	Schedule timeutil.Schedule
	Labels   report.Labels
	Checks   map[string]HealthCheck // optional, e.g. "redis"
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		tickets:  deps.Tickets,
		admin:    deps.Admin,
		pools:    deps.Pools,
		schedule: deps.Schedule,
		labels:   deps.Labels,
		checks:   deps.Checks,
	}
}

func (s *Server) zone() *time.Location {
	if s.schedule.Zone == nil {
		return time.UTC
	}
	return s.schedule.Zone
}
