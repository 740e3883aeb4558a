package quantity

import "errors"

var (
	// ErrUnitSyntax indicates that a text expression could not be read as a
	// physical quantity (malformed number or an unknown unit token).
	ErrUnitSyntax = errors.New("quantity: invalid unit syntax")

	// ErrNoUnits indicates that a bare number was supplied where a
	// dimensioned value is required.
	ErrNoUnits = errors.New("quantity: no units specified")

	// ErrDimensionMismatch indicates arithmetic or conversion between
	// incompatible physical dimensions.
	ErrDimensionMismatch = errors.New("quantity: dimension mismatch")
)
