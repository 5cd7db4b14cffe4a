package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/avdeevlav/sborka-backend/pkg/enums"
)

// CollectionProduct shadows selected product fields for one collection.
// Nil fields fall through to the base product; IsActive=false makes the
// product unavailable in that collection regardless of the base flag.
type CollectionProduct struct {
	ID           int64            `gorm:"column:id;primaryKey;autoIncrement"`
	CollectionID int64            `gorm:"column:collection_id;not null;uniqueIndex:ux_collection_products_pair"`
	ProductID    int64            `gorm:"column:product_id;not null;uniqueIndex:ux_collection_products_pair"`
	PriceKopecks *int64           `gorm:"column:price_kopecks"`
	Step         *decimal.Decimal `gorm:"column:step;type:numeric(12,3)"`
	StockLimit   *decimal.Decimal `gorm:"column:stock_limit;type:numeric(12,3)"`
	StockHint    *enums.StockHint `gorm:"column:stock_hint;type:text"`
	// No gorm default on purpose: a default tag makes gorm drop the field
	// from inserts when it is false, silently re-activating the override.
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
