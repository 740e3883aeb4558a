// Package quantity parses textual physical-quantity expressions such as
// "3.3 V" or "120 mA" into dimensioned values and provides arithmetic that
// propagates and checks dimensions. Dimension bookkeeping is delegated to
// gonum.org/v1/gonum/unit; the unit table lives in an explicit Registry
// rather than process-global state so it can be swapped out in tests.
package quantity

import (
	"fmt"

	"gonum.org/v1/gonum/unit"
)

// Unit describes one entry of the unit table: a symbol, the multiplier that
// takes a magnitude in this unit to the SI base unit, and its dimensions.
type Unit struct {
	Symbol string
	Factor float64
	Dims   unit.Dimensions
}

// Quantity is a (magnitude, unit) pair. The zero value is not meaningful;
// quantities come from Registry.Parse, New, or arithmetic on other
// quantities. Quantities are immutable values: every operation returns a
// new one.
type Quantity struct {
	mag float64
	uni Unit
}

// New builds a quantity from a magnitude and a unit, typically one obtained
// from Registry.Lookup.
func New(mag float64, u Unit) Quantity {
	return Quantity{mag: mag, uni: u}
}

// Magnitude returns the numeric value in the quantity's own unit.
func (q Quantity) Magnitude() float64 { return q.mag }

// Unit returns the unit the magnitude is expressed in.
func (q Quantity) Unit() Unit { return q.uni }

// Dimensions returns the physical dimensions of the quantity.
func (q Quantity) Dimensions() unit.Dimensions { return q.uni.Dims }

// Is reports whether the quantity has exactly the given dimensions.
func (q Quantity) Is(d unit.Dimensions) bool { return dimsEqual(q.uni.Dims, d) }

// IsDimensionless reports whether the quantity carries no dimensions.
func (q Quantity) IsDimensionless() bool { return len(q.uni.Dims) == 0 }

// baseValue is the magnitude expressed in the SI base unit.
func (q Quantity) baseValue() float64 { return q.mag * q.uni.Factor }

// ToBase converts the quantity to its canonical SI representation
// (volts, amperes, seconds, coulombs, joules, ...).
func (q Quantity) ToBase() Quantity {
	return Quantity{
		mag: q.baseValue(),
		uni: Unit{Symbol: baseSymbol(q.uni.Dims), Factor: 1, Dims: q.uni.Dims},
	}
}

// Mul multiplies two quantities. Dimensions always combine, so the result is
// well-defined for any pair; it is expressed in base units.
func (q Quantity) Mul(o Quantity) Quantity {
	d := combineDims(q.uni.Dims, o.uni.Dims, +1)
	return Quantity{
		mag: q.baseValue() * o.baseValue(),
		uni: Unit{Symbol: baseSymbol(d), Factor: 1, Dims: d},
	}
}

// Div divides the quantity by o, expressed in base units.
func (q Quantity) Div(o Quantity) Quantity {
	d := combineDims(q.uni.Dims, o.uni.Dims, -1)
	return Quantity{
		mag: q.baseValue() / o.baseValue(),
		uni: Unit{Symbol: baseSymbol(d), Factor: 1, Dims: d},
	}
}

// MulScalar scales the magnitude, keeping the unit.
func (q Quantity) MulScalar(f float64) Quantity {
	return Quantity{mag: q.mag * f, uni: q.uni}
}

// Add sums two quantities of matching dimensions, returning the result in
// the receiver's unit. Incompatible dimensions fail with
// ErrDimensionMismatch instead of silently coercing.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	if !dimsEqual(q.uni.Dims, o.uni.Dims) {
		return Quantity{}, fmt.Errorf("%w: cannot add %s to %s",
			ErrDimensionMismatch, o.uni.Dims, q.uni.Dims)
	}
	return Quantity{
		mag: (q.baseValue() + o.baseValue()) / q.uni.Factor,
		uni: q.uni,
	}, nil
}

// ConvertTo re-expresses the quantity in the given unit. The target must
// have the same dimensions.
func (q Quantity) ConvertTo(u Unit) (Quantity, error) {
	if !dimsEqual(q.uni.Dims, u.Dims) {
		return Quantity{}, fmt.Errorf("%w: cannot express %s in %q",
			ErrDimensionMismatch, q.uni.Dims, u.Symbol)
	}
	return Quantity{mag: q.baseValue() / u.Factor, uni: u}, nil
}

// String renders the quantity as "<magnitude> <symbol>".
func (q Quantity) String() string {
	if q.uni.Symbol == "" {
		return fmt.Sprintf("%g", q.mag)
	}
	return fmt.Sprintf("%g %s", q.mag, q.uni.Symbol)
}
