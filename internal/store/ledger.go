// Package store keeps a small durable ledger of delivered event ids.
// Fetch-then-acknowledge with no local state accepts duplicate posts when an
// acknowledgment fails; the ledger closes that gap: an event recorded as
// delivered is never posted again, only re-acknowledged.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const ackedRetention = 7 * 24 * time.Hour

// DeliveredEvent is one ledger row. AckedAt stays zero until the upstream
// acknowledgment for the id succeeded.
type DeliveredEvent struct {
	EventID     int64 `gorm:"column:event_id;primaryKey"`
	DeliveredAt int64 `gorm:"column:delivered_at"`
	AckedAt     int64 `gorm:"column:acked_at;index"`
}

func (DeliveredEvent) TableName() string { return "delivered_events" }

// Ledger is a SQLite-backed delivered-event log. Safe for concurrent use.
type Ledger struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// Open creates or opens the ledger at path, migrating the schema and pruning
// acknowledged rows past retention.
func Open(path string) (*Ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("ledger path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory failed: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening ledger failed: %w", err)
	}
	if err := db.AutoMigrate(&DeliveredEvent{}); err != nil {
		return nil, fmt.Errorf("migrating ledger failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)

	l := &Ledger{db: db, nowFn: time.Now}
	l.prune()
	return l, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MarkDelivered records that an event's message reached the sink. Replays of
// an already-recorded id keep the original row.
func (l *Ledger) MarkDelivered(id int64) error {
	row := DeliveredEvent{EventID: id, DeliveredAt: l.nowFn().Unix()}
	return l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// MarkAcked stamps the given ids as acknowledged upstream.
func (l *Ledger) MarkAcked(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return l.db.Model(&DeliveredEvent{}).
		Where("event_id IN ? AND acked_at = 0", ids).
		Update("acked_at", l.nowFn().Unix()).Error
}

// Delivered reports which of ids already have a ledger row, acknowledged or
// not. Those events must not be posted again.
func (l *Ledger) Delivered(ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []DeliveredEvent
	if err := l.db.Where("event_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.EventID] = true
	}
	return out, nil
}

// Pending lists delivered rows still waiting for a successful acknowledgment.
func (l *Ledger) Pending() ([]DeliveredEvent, error) {
	var rows []DeliveredEvent
	err := l.db.Where("acked_at = 0").Order("event_id").Find(&rows).Error
	return rows, err
}

func (l *Ledger) prune() {
	cutoff := l.nowFn().Add(-ackedRetention).Unix()
	l.db.Where("acked_at > 0 AND acked_at < ?", cutoff).Delete(&DeliveredEvent{})
}
