package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/avdeevlav/sborka-backend/internal/pricing"
	pkgerrors "github.com/avdeevlav/sborka-backend/pkg/errors"
	"github.com/avdeevlav/sborka-backend/pkg/qty"
)

// ValidateAndPrice checks a requested quantity against the effective pricing
// view and returns the advisory unit price plus the exact line subtotal.
//
// The price is per step, so subtotal = price × (quantity / step). Quantities
// that are not positive exact multiples of the step are user errors; a
// non-integral subtotal means the price/step configuration itself is broken
// and surfaces as PRICE_STEP_MISMATCH.
func ValidateAndPrice(view pricing.View, quantity decimal.Decimal) (int64, int64, error) {
	if !view.Available {
		return 0, 0, pkgerrors.New(pkgerrors.CodeProductNotAvailable, "product is not available in this collection").
			WithDetails(map[string]any{"product_id": view.ProductID, "collection_id": view.CollectionID})
	}

	steps, err := qty.StepCount(quantity, view.Step)
	if err != nil {
		if errors.Is(err, qty.ErrNotPositive) || errors.Is(err, qty.ErrNotMultiple) || errors.Is(err, qty.ErrInvalid) {
			return 0, 0, pkgerrors.Wrap(pkgerrors.CodeQuantityNotMultiple, err, "quantity must be a positive multiple of the step").
				WithDetails(map[string]any{"step": view.Step.String(), "quantity": quantity.String()})
		}
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodePriceStepMismatch, err, "price does not divide evenly over the step").
			WithDetails(map[string]any{"step": view.Step.String(), "price_kopecks": view.PriceKopecks})
	}

	subtotal, err := qty.Subtotal(view.PriceKopecks, steps)
	if err != nil {
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodePriceStepMismatch, err, "price does not divide evenly over the step").
			WithDetails(map[string]any{"step": view.Step.String(), "price_kopecks": view.PriceKopecks})
	}

	return view.PriceKopecks, subtotal, nil
}
