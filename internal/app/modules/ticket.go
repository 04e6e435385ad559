package modules

import (
	"context"

	"batchtrack.io/tracker/internal/api/handlers"
	"batchtrack.io/tracker/internal/jobs"
	"batchtrack.io/tracker/internal/monitor"
	"batchtrack.io/tracker/internal/service"
)

// TicketModule wires the ticket lifecycle service and the overdue monitor.
type TicketModule struct {
	infra   *Infrastructure
	tickets *service.TicketService
	monitor *monitor.Monitor
}

// NewTicketModule creates a ticket module with explicit constructor wiring.
func NewTicketModule(infra *Infrastructure) *TicketModule {
	tickets := service.NewTicketService(infra.Store, infra.Policy, infra.Events, infra.Pools, infra.Thresholds)
	return &TicketModule{
		infra:   infra,
		tickets: tickets,
		monitor: monitor.New(infra.Store, infra.Thresholds, tickets.NotifyOverdue),
	}
}

// Tickets exposes the service for modules that build on it.
func (m *TicketModule) Tickets() *service.TicketService { return m.tickets }

func (m *TicketModule) Name() string { return "ticket" }

func (m *TicketModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Tickets = m.tickets
}

func (m *TicketModule) RegisterJobs(s *jobs.Scheduler) error {
	cfg := m.infra.Config.Monitor
	if s == nil || !cfg.Enabled {
		return nil
	}
	return s.Every(jobs.JobOverdueScan, cfg.Interval, jobs.OverdueScan(m.monitor))
}

func (m *TicketModule) Shutdown(context.Context) error { return nil }
