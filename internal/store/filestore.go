package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/pkg/logger"
)

// FileBackend keeps each collection in its own JSON file plus a small meta
// file for the id sequence. Every file is replaced atomically.
type FileBackend struct {
	ActivePath  string
	ArchivePath string
	MetaPath    string
}

type fileMeta struct {
	Sequence int `json:"sequence"`
}

// NewFileBackend creates a file backend for the given paths.
func NewFileBackend(activePath, archivePath, metaPath string) *FileBackend {
	return &FileBackend{ActivePath: activePath, ArchivePath: archivePath, MetaPath: metaPath}
}

// Load reads all three files. Missing files load empty; corrupt files load
// empty with a warning.
func (b *FileBackend) Load(ctx context.Context) (Snapshot, error) {
	active, err := readTickets(b.ActivePath)
	if err != nil {
		return Snapshot{}, err
	}
	archive, err := readTickets(b.ArchivePath)
	if err != nil {
		return Snapshot{}, err
	}

	var meta fileMeta
	if err := readJSON(b.MetaPath, &meta); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Active: active, Archive: archive, Sequence: meta.Sequence}, nil
}

// Save writes the archive first, then the active collection, then the
// sequence. A crash between writes leaves at worst a ticket in both
// collections, which Open repairs.
func (b *FileBackend) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := writeJSON(b.ArchivePath, nonNil(snap.Archive)); err != nil {
		return err
	}
	if err := writeJSON(b.ActivePath, nonNil(snap.Active)); err != nil {
		return err
	}
	return writeJSON(b.MetaPath, fileMeta{Sequence: snap.Sequence})
}

// Close is a no-op.
func (b *FileBackend) Close() error { return nil }

func nonNil(list []domain.Ticket) []domain.Ticket {
	if list == nil {
		return []domain.Ticket{}
	}
	return list
}

func readTickets(path string) ([]domain.Ticket, error) {
	var list []domain.Ticket
	if err := readJSON(path, &list); err != nil {
		return nil, err
	}
	return nonNil(list), nil
}

// readJSON decodes path into v. A missing file leaves v untouched; a corrupt
// one resets v to its zero value.
func readJSON(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("Corrupt store file, loading as empty",
			zap.String("path", path),
			zap.Error(err),
		)
		switch p := v.(type) {
		case *[]domain.Ticket:
			*p = nil
		case *fileMeta:
			*p = fileMeta{}
		}
	}
	return nil
}

// writeJSON writes v to a temp file next to path and renames it into place.
func writeJSON(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}
