package models

import (
	"time"

	"github.com/avdeevlav/sborka-backend/pkg/enums"
)

// Order is the immutable result of a cart submission. The human-readable
// number derives from the numeric id after insert, so two orders can never
// share one.
type Order struct {
	ID                  int64              `gorm:"column:id;primaryKey;autoIncrement"`
	OrderNumber         string             `gorm:"column:order_number;uniqueIndex"`
	CollectionID        int64              `gorm:"column:collection_id;not null;index"`
	Status              enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'submitted'"`
	TotalKopecks        int64              `gorm:"column:total_kopecks;not null"`
	DeliveryType        enums.DeliveryType `gorm:"column:delivery_type;type:text;not null;default:'pickup'"`
	DeliveryAddress     *string            `gorm:"column:delivery_address"`
	DeliveryCostKopecks int64              `gorm:"column:delivery_cost_kopecks;not null;default:0"`
	UserID              *int64             `gorm:"column:user_id;index"`
	GuestSessionID      *string            `gorm:"column:guest_session_id;index"`
	GuestName           *string            `gorm:"column:guest_name"`
	GuestPhone          *string            `gorm:"column:guest_phone"`
	IsGuestOrder        bool               `gorm:"column:is_guest_order;not null;default:false"`
	Items               []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
