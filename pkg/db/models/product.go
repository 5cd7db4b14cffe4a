package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/avdeevlav/sborka-backend/pkg/enums"
)

// Product is the catalog base record. Prices are kopecks, quantities and
// steps live in numeric columns and go through pkg/qty.
type Product struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Title         string          `gorm:"column:title;not null"`
	UnitLabel     string          `gorm:"column:unit_label;not null;default:'шт'"`
	PriceKopecks  int64           `gorm:"column:price_kopecks;not null"`
	Step          decimal.Decimal `gorm:"column:step;type:numeric(12,3);not null;default:1"`
	StockQuantity decimal.Decimal `gorm:"column:stock_quantity;type:numeric(12,3);not null;default:0"`
	MinStock      decimal.Decimal `gorm:"column:min_stock;type:numeric(12,3);not null;default:0"`
	// No gorm default on purpose: a default tag makes gorm drop the field
	// from inserts when it is false, silently re-activating the row.
	IsActive  bool             `gorm:"column:is_active;not null"`
	StockHint *enums.StockHint `gorm:"column:stock_hint;type:text"`
	Tags      pq.StringArray   `gorm:"column:tags;type:text[]"`
	ImagePath *string          `gorm:"column:image_path"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
