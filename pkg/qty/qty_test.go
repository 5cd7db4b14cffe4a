package qty

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	d, err := Parse("1.5")
	require.NoError(t, err)
	assert.Equal(t, "1.5", d.String())

	_, err = Parse("not-a-number")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse("0.0001")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParsePositive(t *testing.T) {
	t.Parallel()

	_, err := ParsePositive("0")
	assert.ErrorIs(t, err, ErrNotPositive)

	_, err = ParsePositive("-1.5")
	assert.ErrorIs(t, err, ErrNotPositive)

	d, err := ParsePositive("0.5")
	require.NoError(t, err)
	assert.True(t, d.IsPositive())
}

func TestStepCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		quantity string
		step     string
		want     int64
		wantErr  error
	}{
		{name: "exact multiple", quantity: "1.5", step: "0.5", want: 3},
		{name: "whole units", quantity: "4", step: "1", want: 4},
		{name: "fractional step", quantity: "0.9", step: "0.3", want: 3},
		{name: "not a multiple", quantity: "1.3", step: "0.5", wantErr: ErrNotMultiple},
		{name: "zero quantity", quantity: "0", step: "0.5", wantErr: ErrNotPositive},
		{name: "negative quantity", quantity: "-1", step: "0.5", wantErr: ErrNotPositive},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			quantity := decimal.RequireFromString(tt.quantity)
			step := decimal.RequireFromString(tt.step)
			count, err := StepCount(quantity, step)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, count.IntPart())
		})
	}
}

func TestSubtotalExact(t *testing.T) {
	t.Parallel()

	count, err := StepCount(decimal.RequireFromString("1.5"), decimal.RequireFromString("0.5"))
	require.NoError(t, err)

	subtotal, err := Subtotal(15000, count)
	require.NoError(t, err)
	assert.Equal(t, int64(45000), subtotal)
}

func TestSubtotalRejectsFractionalKopecks(t *testing.T) {
	t.Parallel()

	_, err := Subtotal(101, decimal.RequireFromString("0.5"))
	assert.ErrorIs(t, err, ErrNotIntegral)
}

func TestIsMultipleGuardsZeroStep(t *testing.T) {
	t.Parallel()

	assert.False(t, IsMultiple(decimal.NewFromInt(1), decimal.Zero))
}
