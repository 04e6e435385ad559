package modules

import (
	"context"
	"fmt"

	"batchtrack.io/tracker/internal/api/handlers"
	"batchtrack.io/tracker/internal/config"
	"batchtrack.io/tracker/internal/jobs"
	"batchtrack.io/tracker/internal/service"
)

// AdminModule wires the secret-guarded maintenance operations and the
// scheduled backup.
type AdminModule struct {
	infra *Infrastructure
	admin *service.AdminService
}

// NewAdminModule creates an admin module on top of the ticket service.
func NewAdminModule(infra *Infrastructure, tickets *service.TicketService) *AdminModule {
	cfg := infra.Config
	return &AdminModule{
		infra: infra,
		admin: service.NewAdminService(
			infra.Store,
			tickets,
			service.NewSecretChecker(cfg.Admin.Secret, cfg.Admin.SecretHash),
			cfg.Store.BackupDir,
			infra.Schedule.Zone,
		),
	}
}

func (m *AdminModule) Name() string { return "admin" }

func (m *AdminModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil {
		return
	}
	deps.Admin = m.admin
}

func (m *AdminModule) RegisterJobs(s *jobs.Scheduler) error {
	cfg := m.infra.Config.Backup
	if s == nil || !cfg.Enabled {
		return nil
	}
	hour, minute, err := config.ParseClock(cfg.At)
	if err != nil {
		return fmt.Errorf("backup schedule: %w", err)
	}
	return s.DailyAt(jobs.JobDailyBackup, hour, minute, jobs.DailyBackup(m.admin))
}

func (m *AdminModule) Shutdown(context.Context) error { return nil }
