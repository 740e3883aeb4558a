package quantity

import "gonum.org/v1/gonum/unit"

// Dimension sets for the electrical/temporal domain, expressed in SI base
// dimensions. Charge is current x time (an ampere-hour reduces to coulombs),
// energy is mass x length^2 / time^2 (a watt-hour reduces to joules).
var (
	Dimless     = unit.Dimensions{}
	TimeDims    = unit.Dimensions{unit.TimeDim: 1}
	CurrentDims = unit.Dimensions{unit.CurrentDim: 1}
	VoltageDims = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3, unit.CurrentDim: -1}
	ChargeDims  = unit.Dimensions{unit.CurrentDim: 1, unit.TimeDim: 1}
	EnergyDims  = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2}
	PowerDims   = unit.Dimensions{unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3}
)

func dimsEqual(a, b unit.Dimensions) bool {
	return unit.DimensionsMatch(unit.New(0, a), unit.New(0, b))
}

// combineDims merges two dimension sets, adding exponents scaled by sign
// (+1 for multiplication, -1 for division). Zero exponents are dropped so
// that dimensionless results have an empty set.
func combineDims(a, b unit.Dimensions, sign int) unit.Dimensions {
	out := make(unit.Dimensions, len(a)+len(b))
	for d, p := range a {
		out[d] = p
	}
	for d, p := range b {
		out[d] += sign * p
		if out[d] == 0 {
			delete(out, d)
		}
	}
	return out
}

// baseSymbol names the canonical SI unit for a dimension set, falling back
// to gonum's dimension rendering for compound results with no common name.
func baseSymbol(d unit.Dimensions) string {
	switch {
	case len(d) == 0:
		return ""
	case dimsEqual(d, VoltageDims):
		return "V"
	case dimsEqual(d, CurrentDims):
		return "A"
	case dimsEqual(d, TimeDims):
		return "s"
	case dimsEqual(d, ChargeDims):
		return "C"
	case dimsEqual(d, EnergyDims):
		return "J"
	case dimsEqual(d, PowerDims):
		return "W"
	default:
		return d.String()
	}
}
