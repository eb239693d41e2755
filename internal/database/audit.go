package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/thereayou/nezako-tabletop/internal/audit"
)

// AuditRecord is one archived log entry. Payload holds the JSON of the record
// the action created or updated.
type AuditRecord struct {
	ID         uint      `gorm:"primaryKey"`
	RoomID     string    `gorm:"size:36;not null;index:idx_audit_room_time,priority:1"`
	Action     string    `gorm:"size:32;not null"`
	Payload    string    `gorm:"type:text;not null"`
	OccurredAt time.Time `gorm:"not null;index:idx_audit_room_time,priority:2"`
	CreatedAt  time.Time
}

func (AuditRecord) TableName() string {
	return "audit_records"
}

// Write archives one entry. It satisfies audit.Sink.
func (d *Database) Write(ctx context.Context, entry audit.Entry) error {
	if d.db == nil {
		return errors.New("database is not connected")
	}
	rec, err := newAuditRecord(entry)
	if err != nil {
		return err
	}
	return d.db.WithContext(ctx).Create(&rec).Error
}

func newAuditRecord(entry audit.Entry) (AuditRecord, error) {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return AuditRecord{}, fmt.Errorf("encode %s payload: %w", entry.Action, err)
	}
	return AuditRecord{
		RoomID:     entry.RoomID,
		Action:     string(entry.Action),
		Payload:    string(payload),
		OccurredAt: entry.Timestamp.UTC(),
	}, nil
}
