package explorer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"filmvault/core/events"
)

// EventRecord is one indexed module event row.
type EventRecord struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	Height     uint64    `gorm:"index"`
	Type       string    `gorm:"index"`
	Attributes string    // JSON-encoded attribute map
	IndexedAt  time.Time `gorm:"autoCreateTime"`
}

// Indexer persists every emitted module event into a SQLite database so
// explorers and support tooling can query campaign history after the fact.
// It satisfies the events.Emitter interface.
type Indexer struct {
	db       *gorm.DB
	heightFn func() uint64
	logger   *slog.Logger
}

// NewIndexer opens (or creates) the index database at path. An empty path
// selects a shared in-memory database, which tests rely on.
func NewIndexer(path string, heightFn func() uint64, logger *slog.Logger) (*Indexer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := "file::memory:?cache=shared"
	if path != "" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("explorer: open index: %w", err)
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("explorer: migrate index: %w", err)
	}
	if heightFn == nil {
		heightFn = func() uint64 { return 0 }
	}
	return &Indexer{db: db, heightFn: heightFn, logger: logger}, nil
}

// Emit indexes one module event. Indexing failures are logged and swallowed:
// the ledger write already committed, so the event stream must never block or
// fail a state transition.
func (ix *Indexer) Emit(evt events.Event) {
	if ix == nil || ix.db == nil || evt == nil {
		return
	}
	record := EventRecord{
		Height: ix.heightFn(),
		Type:   evt.EventType(),
	}
	if payload, ok := evt.(events.Payload); ok {
		rendered := payload.Event()
		if rendered != nil && len(rendered.Attributes) > 0 {
			encoded, err := json.Marshal(rendered.Attributes)
			if err != nil {
				ix.logger.Warn("failed to encode event attributes", "type", record.Type, "err", err)
			} else {
				record.Attributes = string(encoded)
			}
		}
	}
	if err := ix.db.Create(&record).Error; err != nil {
		ix.logger.Warn("failed to index event", "type", record.Type, "err", err)
	}
}

// Recent returns the most recently indexed events, newest first.
func (ix *Indexer) Recent(limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []EventRecord
	err := ix.db.Order("id DESC").Limit(limit).Find(&records).Error
	return records, err
}

// ByType returns the most recent events of one type, newest first.
func (ix *Indexer) ByType(eventType string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []EventRecord
	err := ix.db.Where("type = ?", eventType).Order("id DESC").Limit(limit).Find(&records).Error
	return records, err
}

// CountByType returns how many events of one type have been indexed.
func (ix *Indexer) CountByType(eventType string) (int64, error) {
	var count int64
	err := ix.db.Model(&EventRecord{}).Where("type = ?", eventType).Count(&count).Error
	return count, err
}

// Close releases the underlying database connection.
func (ix *Indexer) Close() error {
	sqlDB, err := ix.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
