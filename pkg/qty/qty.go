// Package qty is the single conversion point between decimal strings at rest
// and exact decimal arithmetic in memory. Quantities and steps flow through
// here; money stays int64 kopecks and never touches floating point.
package qty

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantities are persisted with at most three fractional digits.
const MaxScale = 3

var (
	ErrInvalid     = errors.New("invalid decimal quantity")
	ErrNotPositive = errors.New("quantity must be positive")
	ErrNotMultiple = errors.New("quantity is not a multiple of step")
	ErrNotIntegral = errors.New("amount is not a whole number of kopecks")
)

// Parse converts a decimal string into an exact decimal value.
func Parse(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalid, value)
	}
	if d.Exponent() < -MaxScale {
		return decimal.Zero, fmt.Errorf("%w: %q exceeds %d decimal places", ErrInvalid, value, MaxScale)
	}
	return d, nil
}

// ParsePositive parses a decimal string and requires it to be > 0.
func ParsePositive(value string) (decimal.Decimal, error) {
	d, err := Parse(value)
	if err != nil {
		return decimal.Zero, err
	}
	if d.Sign() <= 0 {
		return decimal.Zero, ErrNotPositive
	}
	return d, nil
}

// IsMultiple reports whether quantity is an exact multiple of step.
func IsMultiple(quantity, step decimal.Decimal) bool {
	if step.Sign() <= 0 {
		return false
	}
	return quantity.Mod(step).IsZero()
}

// StepCount returns quantity/step as a whole number of steps.
// It fails when quantity is not positive or not step-aligned.
func StepCount(quantity, step decimal.Decimal) (decimal.Decimal, error) {
	if step.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: step %s", ErrInvalid, step)
	}
	if quantity.Sign() <= 0 {
		return decimal.Zero, ErrNotPositive
	}
	if !IsMultiple(quantity, step) {
		return decimal.Zero, ErrNotMultiple
	}
	count := quantity.Div(step)
	if !count.IsInteger() {
		return decimal.Zero, ErrNotMultiple
	}
	return count, nil
}

// Subtotal multiplies a per-step price by a step count and requires the
// result to be a whole number of kopecks. A fractional result means the
// catalog's price/step configuration is broken, not that the caller erred.
func Subtotal(priceKopecks int64, stepCount decimal.Decimal) (int64, error) {
	total := decimal.NewFromInt(priceKopecks).Mul(stepCount)
	if !total.IsInteger() {
		return 0, ErrNotIntegral
	}
	return total.IntPart(), nil
}

// String renders a quantity back to its canonical string form.
func String(d decimal.Decimal) string {
	return d.String()
}
