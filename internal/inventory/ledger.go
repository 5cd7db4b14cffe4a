package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avdeevlav/sborka-backend/pkg/db/models"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/logger"
)

// Ledger adjusts product stock with exact decimal arithmetic. Decreases are
// floor-clamped at zero: a group buy accepts the order even when recorded
// stock runs short, the shortfall is only logged.
type Ledger struct {
	db   *gorm.DB
	logg *logger.Logger
}

// NewLedger binds the ledger to the provided DB handle.
func NewLedger(db *gorm.DB, logg *logger.Logger) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Ledger{db: db, logg: logg}, nil
}

// WithTx scopes the ledger to the provided transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	if tx == nil {
		return l
	}
	return &Ledger{db: tx, logg: l.logg}
}

// Decrease subtracts qty from the product's stock, clamping at zero. The
// fast path is a single conditional UPDATE, so concurrent decrements never
// read-modify-write a stale value. Returns true when the clamp fired.
func (l *Ledger) Decrease(ctx context.Context, productID int64, qty decimal.Decimal) (bool, error) {
	if qty.Sign() <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
	}
	if res.RowsAffected > 0 {
		return false, nil
	}

	// Insufficient stock (or missing product): clamp what is left to zero.
	clamp := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", decimal.Zero)
	if clamp.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, clamp.Error, "clamp stock")
	}
	if clamp.RowsAffected == 0 {
		return false, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	fields := map[string]any{"product_id": productID, "requested_qty": qty.String()}
	l.logg.Warn(l.logg.WithFields(ctx, fields), "stock shortfall, clamped to zero")
	return true, nil
}

// Increase adds qty back to the product's stock, symmetric to Decrease.
func (l *Ledger) Increase(ctx context.Context, productID int64, qty decimal.Decimal) error {
	if qty.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}
