package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CycleRecord is the persisted audit row for one suggestion cycle.
type CycleRecord struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Action      string         `gorm:"column:action" json:"action"`
	Reason      string         `gorm:"column:reason;not null" json:"reason"`
	Accepted    bool           `gorm:"column:accepted;not null" json:"accepted"`
	Success     bool           `gorm:"column:success;not null" json:"success"`
	Message     string         `gorm:"column:message" json:"message"`
	TriggerData datatypes.JSON `gorm:"column:trigger_data" json:"trigger_data"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (CycleRecord) TableName() string {
	return "cycle_record"
}
