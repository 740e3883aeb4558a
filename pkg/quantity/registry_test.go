package quantity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		symbol string
		factor float64
	}{
		{"V", 1},
		{"mV", 1e-3},
		{"A", 1},
		{"mA", 1e-3},
		{"µA", 1e-6},
		{"Ah", 3600},
		{"mAh", 3.6},
		{"Wh", 3600},
		{"J", 1},
		{"W", 1},
		{"s", 1},
		{"min", 60},
		{"h", 3600},
		{"d", 86400},
		{"volt", 1},
		{"hours", 3600},
		{"ampere", 1},
	}
	for _, tt := range tests {
		u, ok := reg.Lookup(tt.symbol)
		require.True(t, ok, tt.symbol)
		assert.InDelta(t, tt.factor, u.Factor, 1e-12, tt.symbol)
	}

	_, ok := reg.Lookup("furlong")
	assert.False(t, ok)
}

func TestRegistry_MustHelpers(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, "Wh", reg.MustUnit("Wh").Symbol)
	assert.InDelta(t, 3.3, reg.MustParse("3.3 V").Magnitude(), 1e-12)

	assert.Panics(t, func() { reg.MustUnit("furlong") })
	assert.Panics(t, func() { reg.MustParse("no magnitude") })
}

func TestRegistry_SymbolCaseSensitivity(t *testing.T) {
	reg := NewRegistry()

	// mV and mW differ only by case from nothing else in the table, and
	// symbols must not fold: "MV" is not a defined unit here.
	_, ok := reg.Lookup("MV")
	assert.False(t, ok)

	_, err := reg.Parse("10 MA")
	require.ErrorIs(t, err, ErrUnitSyntax)
}
