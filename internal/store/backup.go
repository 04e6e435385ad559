package store

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/pkg/logger"
)

// BackupFileLayout names backup files by their display-zone time.
const BackupFileLayout = "backup_tickets_2006-01-02_15-04.json"

// Backup is the on-disk backup document.
type Backup struct {
	BackupTime     time.Time       `json:"backup_time"`
	ActiveRecords  int             `json:"active_records"`
	ArchiveRecords int             `json:"archive_records"`
	Sequence       int             `json:"sequence"`
	ActiveData     []domain.Ticket `json:"active_data"`
	ArchiveData    []domain.Ticket `json:"archive_data"`
}

// WriteBackup writes snap into dir and returns the file path. The file name
// carries now in zone; backup_time is stored in UTC.
func WriteBackup(dir string, snap Snapshot, now time.Time, zone *time.Location) (string, error) {
	if zone == nil {
		zone = time.UTC
	}
	doc := Backup{
		BackupTime:     now.UTC(),
		ActiveRecords:  len(snap.Active),
		ArchiveRecords: len(snap.Archive),
		Sequence:       snap.Sequence,
		ActiveData:     nonNil(snap.Active),
		ArchiveData:    nonNil(snap.Archive),
	}

	path := filepath.Join(dir, now.In(zone).Format(BackupFileLayout))
	if err := writeJSON(path, doc); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	logger.Info("Ticket backup written",
		zap.String("path", path),
		zap.Int("active", doc.ActiveRecords),
		zap.Int("archive", doc.ArchiveRecords),
	)
	return path, nil
}
