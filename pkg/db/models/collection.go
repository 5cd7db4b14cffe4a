package models

import (
	"time"

	"github.com/avdeevlav/sborka-backend/pkg/enums"
)

// Collection is a time-boxed sales period. Carts, pricing overrides and
// orders are always scoped to exactly one collection.
type Collection struct {
	ID        int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	Title     string                 `gorm:"column:title;not null"`
	Status    enums.CollectionStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	StartsAt  *time.Time             `gorm:"column:starts_at"`
	EndsAt    *time.Time             `gorm:"column:ends_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
