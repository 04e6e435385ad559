// Package testutil holds shared test fixtures.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"batchtrack.io/tracker/internal/config"
	"batchtrack.io/tracker/internal/infrastructure"
	"batchtrack.io/tracker/internal/mixer"
)

// OpenSQLite opens tickets.db in dir. The handle is closed on cleanup, so
// reopening the same dir inside one test observes persisted rows.
func OpenSQLite(t testing.TB, dir string) *gorm.DB {
	t.Helper()

	db, err := infrastructure.OpenSQLite(context.Background(), filepath.Join(dir, "tickets.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// MixerPolicy returns the policy for the default floor layout.
func MixerPolicy(t testing.TB) *mixer.Policy {
	t.Helper()

	p, err := mixer.NewPolicy(config.DefaultMixerTable())
	if err != nil {
		t.Fatalf("mixer policy: %v", err)
	}
	return p
}
