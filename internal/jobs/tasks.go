package jobs

import (
	"context"

	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/monitor"
	"batchtrack.io/tracker/internal/pkg/logger"
)

// Job names.
const (
	JobOverdueScan = "overdue_scan"
	JobDailyBackup = "daily_backup"
)

// OverdueScan returns a task that runs one monitor pass. Alerts are raised by
// the monitor itself.
func OverdueScan(m *monitor.Monitor) Task {
	return func(ctx context.Context) error {
		overdue := m.Scan(ctx)
		if len(overdue) > 0 {
			logger.Info("Overdue scan completed", zap.Int("overdue", len(overdue)))
		}
		return nil
	}
}

// BackupRunner writes a snapshot and returns its path.
type BackupRunner interface {
	Backup(ctx context.Context) (string, error)
}

// DailyBackup returns a task that writes one backup.
func DailyBackup(b BackupRunner) Task {
	return func(ctx context.Context) error {
		path, err := b.Backup(ctx)
		if err != nil {
			return err
		}
		logger.Info("Scheduled backup written", zap.String("path", path))
		return nil
	}
}
