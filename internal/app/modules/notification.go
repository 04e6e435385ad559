package modules

import (
	"context"

	"batchtrack.io/tracker/internal/api/handlers"
	"batchtrack.io/tracker/internal/jobs"
	"batchtrack.io/tracker/internal/notification"
)

// NotificationModule subscribes the notification triggers to ticket events.
// Messages always go to the log; Redis is added when configured.
type NotificationModule struct {
	infra    *Infrastructure
	triggers *notification.Triggers
}

// NewNotificationModule creates the module and registers its triggers when
// notifications are enabled.
func NewNotificationModule(infra *Infrastructure) *NotificationModule {
	m := &NotificationModule{infra: infra}
	if !infra.Config.Notify.Enabled {
		return m
	}

	senders := notification.Fanout{notification.NewLogSender()}
	if infra.Redis != nil {
		senders = append(senders, notification.NewRedisSender(infra.Redis, infra.Config.Redis.Channel))
	}
	m.triggers = notification.NewTriggers(senders, infra.Labels)
	m.triggers.Register(infra.Events)
	return m
}

func (m *NotificationModule) Name() string { return "notification" }

func (m *NotificationModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	if deps == nil || m.infra.Redis == nil {
		return
	}
	if deps.Checks == nil {
		deps.Checks = map[string]handlers.HealthCheck{}
	}
	rdb := m.infra.Redis
	deps.Checks["redis"] = func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

func (m *NotificationModule) RegisterJobs(*jobs.Scheduler) error { return nil }

func (m *NotificationModule) Shutdown(context.Context) error { return nil }
