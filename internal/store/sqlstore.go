package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/pkg/logger"
)

// Collections stored in ticketRow.Collection.
const (
	collectionActive  = "active"
	collectionArchive = "archive"
)

const sequenceKey = "ticket_sequence"

// ticketRow stores one ticket document. Position keeps collection order.
type ticketRow struct {
	ID         uint           `gorm:"primaryKey"`
	TicketID   string         `gorm:"size:32;not null;index"`
	Collection string         `gorm:"size:16;not null;index:idx_collection_position,priority:1"`
	Position   int            `gorm:"not null;index:idx_collection_position,priority:2"`
	Mixer      string         `gorm:"size:32;index"`
	Status     string         `gorm:"size:32;index"`
	Payload    datatypes.JSON `gorm:"not null"`
}

func (ticketRow) TableName() string { return "tickets" }

type metaRow struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int    `gorm:"not null"`
}

func (metaRow) TableName() string { return "store_meta" }

// SQLBackend persists snapshots to a relational database through gorm. Each
// Save runs in one transaction.
type SQLBackend struct {
	db *gorm.DB
}

// NewSQLBackend migrates the schema and returns a backend on db.
func NewSQLBackend(ctx context.Context, db *gorm.DB) (*SQLBackend, error) {
	if err := db.WithContext(ctx).AutoMigrate(&ticketRow{}, &metaRow{}); err != nil {
		return nil, fmt.Errorf("migrate ticket schema: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

// Load reads both collections in stored order. Rows whose payload does not
// decode are skipped with a warning.
func (b *SQLBackend) Load(ctx context.Context) (Snapshot, error) {
	var rows []ticketRow
	if err := b.db.WithContext(ctx).
		Order("collection, position").
		Find(&rows).Error; err != nil {
		return Snapshot{}, fmt.Errorf("query tickets: %w", err)
	}

	snap := Snapshot{Active: []domain.Ticket{}, Archive: []domain.Ticket{}}
	for _, r := range rows {
		var t domain.Ticket
		if err := json.Unmarshal(r.Payload, &t); err != nil {
			logger.Warn("Corrupt ticket row, skipping",
				logger.TicketID(r.TicketID),
				zap.String("collection", r.Collection),
				zap.Error(err),
			)
			continue
		}
		switch r.Collection {
		case collectionActive:
			snap.Active = append(snap.Active, t)
		case collectionArchive:
			snap.Archive = append(snap.Archive, t)
		}
	}

	var meta metaRow
	err := b.db.WithContext(ctx).Where("name = ?", sequenceKey).Take(&meta).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return Snapshot{}, fmt.Errorf("query sequence: %w", err)
	default:
		snap.Sequence = meta.Value
	}
	return snap, nil
}

// Save replaces every stored ticket and the sequence in one transaction.
func (b *SQLBackend) Save(ctx context.Context, snap Snapshot) error {
	rows := make([]ticketRow, 0, len(snap.Active)+len(snap.Archive))
	for _, c := range []struct {
		name string
		list []domain.Ticket
	}{
		{collectionActive, snap.Active},
		{collectionArchive, snap.Archive},
	} {
		for i, t := range c.list {
			payload, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("encode ticket %s: %w", t.TicketID, err)
			}
			rows = append(rows, ticketRow{
				TicketID:   t.TicketID,
				Collection: c.name,
				Position:   i,
				Mixer:      t.Mixer,
				Status:     string(t.Status),
				Payload:    datatypes.JSON(payload),
			})
		}
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&ticketRow{}).Error; err != nil {
			return fmt.Errorf("clear tickets: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 200).Error; err != nil {
				return fmt.Errorf("insert tickets: %w", err)
			}
		}
		meta := metaRow{Name: sequenceKey, Value: snap.Sequence}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&meta).Error; err != nil {
			return fmt.Errorf("save sequence: %w", err)
		}
		return nil
	})
}

// Close closes the underlying connection pool.
func (b *SQLBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
