package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inkhouse/backoffice/pkg/enums"
)

// ActivityLogEntry records one mutation. Entries are append-only; the only
// removal path is the cascade when a pending order is deleted.
type ActivityLogEntry struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SubjectType enums.SubjectType    `gorm:"column:subject_type;not null" json:"subject_type"`
	SubjectID   uuid.UUID            `gorm:"column:subject_id;type:uuid;not null" json:"subject_id"`
	Action      enums.ActivityAction `gorm:"column:action;not null" json:"action"`
	Details     string               `gorm:"column:details;not null" json:"details"`
	Metadata    json.RawMessage      `gorm:"column:metadata;type:jsonb" json:"metadata"`
	ActorID     uuid.UUID            `gorm:"column:actor_id;type:uuid;not null" json:"actor_id"`
	RequestID   *string              `gorm:"column:request_id" json:"request_id,omitempty"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ActivityLogEntry) TableName() string { return "activity_log_entries" }

func (e *ActivityLogEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
