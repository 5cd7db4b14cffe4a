package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one cart line, owned either by a user or by a guest session,
// never both. UnitPriceKopecks is the price observed when the line was
// written; it is advisory only and every checkout re-resolves pricing.
type CartItem struct {
	ID               int64           `gorm:"column:id;primaryKey;autoIncrement"`
	UserID           *int64          `gorm:"column:user_id;index"`
	SessionID        *string         `gorm:"column:session_id;index"`
	CollectionID     int64           `gorm:"column:collection_id;not null;index"`
	ProductID        int64           `gorm:"column:product_id;not null"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	UnitPriceKopecks int64           `gorm:"column:unit_price_kopecks;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// OwnedByUser reports whether the line belongs to an authenticated user.
func (c CartItem) OwnedByUser() bool {
	return c.UserID != nil
}
