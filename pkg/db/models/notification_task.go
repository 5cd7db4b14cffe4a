package models

import (
	"encoding/json"
	"time"

	"github.com/avdeevlav/sborka-backend/pkg/enums"
)

// NotificationTask is one queued outbound message. Enqueueing is
// fire-and-forget for the caller; the worker owns delivery, attempts
// and backoff state.
type NotificationTask struct {
	ID            int64                    `gorm:"column:id;primaryKey;autoIncrement"`
	Type          enums.NotificationType   `gorm:"column:type;type:text;not null"`
	Payload       json.RawMessage          `gorm:"column:payload;type:jsonb;not null"`
	Status        enums.NotificationStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Attempts      int                      `gorm:"column:attempts;not null;default:0"`
	NextAttemptAt time.Time                `gorm:"column:next_attempt_at;not null;index"`
	LastError     *string                  `gorm:"column:last_error"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
