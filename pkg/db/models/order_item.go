package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is the snapshot of a product at the moment of order creation.
// Title, unit label, price, step and image are frozen here and are never
// re-derived from the live catalog; this row is the audit trail.
type OrderItem struct {
	ID               int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID          int64           `gorm:"column:order_id;not null;index"`
	ProductID        int64           `gorm:"column:product_id;not null"`
	Title            string          `gorm:"column:title;not null"`
	UnitLabel        string          `gorm:"column:unit_label;not null"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	Step             decimal.Decimal `gorm:"column:step;type:numeric(12,3);not null"`
	UnitPriceKopecks int64           `gorm:"column:unit_price_kopecks;not null"`
	SubtotalKopecks  int64           `gorm:"column:subtotal_kopecks;not null"`
	ImagePath        *string         `gorm:"column:image_path"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
