package enums

import "fmt"

// StockHint is the display-only stock signal shown to customers.
// It can be overridden per collection and the "out" value also
// makes the product unavailable for ordering.
type StockHint string

const (
	StockHintIn  StockHint = "in"
	StockHintLow StockHint = "low"
	StockHintOut StockHint = "out"
)

var validStockHints = []StockHint{
	StockHintIn,
	StockHintLow,
	StockHintOut,
}

// String implements fmt.Stringer.
func (s StockHint) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockHint.
func (s StockHint) IsValid() bool {
	for _, candidate := range validStockHints {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockHint converts raw input into a StockHint.
func ParseStockHint(value string) (StockHint, error) {
	for _, candidate := range validStockHints {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock hint %q", value)
}
