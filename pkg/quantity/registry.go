package quantity

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/unit"
)

// Registry is the unit-definition table used for parsing. It is immutable
// after NewRegistry and safe to share between goroutines; pass one instance
// to every model constructor instead of relying on a package global.
type Registry struct {
	units map[string]Unit
}

// NewRegistry builds the standard table of SI and common derived units for
// the electrical domain: volts, amperes, ampere-hours, watt-hours, joules,
// watts, seconds through days, plus long-name aliases ("volt", "hours").
// Symbols match case-sensitively; aliases are matched case-insensitively.
func NewRegistry() *Registry {
	r := &Registry{units: make(map[string]Unit, 64)}

	def := func(factor float64, dims unit.Dimensions, symbol string, aliases ...string) {
		u := Unit{Symbol: symbol, Factor: factor, Dims: dims}
		r.units[symbol] = u
		for _, a := range aliases {
			r.units[strings.ToLower(a)] = u
		}
	}

	def(1, VoltageDims, "V", "volt", "volts")
	def(1e-3, VoltageDims, "mV", "millivolt", "millivolts")
	def(1e-6, VoltageDims, "uV")
	def(1e3, VoltageDims, "kV", "kilovolt", "kilovolts")

	def(1, CurrentDims, "A", "amp", "amps", "ampere", "amperes")
	def(1e-3, CurrentDims, "mA", "milliamp", "milliamps")
	def(1e-6, CurrentDims, "uA", "microamp", "microamps")
	r.units["µA"] = r.units["uA"]
	def(1e-9, CurrentDims, "nA", "nanoamp", "nanoamps")

	def(1, ChargeDims, "C", "coulomb", "coulombs")
	def(3600, ChargeDims, "Ah")
	def(3.6, ChargeDims, "mAh")
	def(3.6e-3, ChargeDims, "uAh")
	r.units["µAh"] = r.units["uAh"]

	def(1, EnergyDims, "J", "joule", "joules")
	def(1e-3, EnergyDims, "mJ")
	def(1e3, EnergyDims, "kJ")
	def(3600, EnergyDims, "Wh")
	def(3.6, EnergyDims, "mWh")
	def(3.6e6, EnergyDims, "kWh")

	def(1, PowerDims, "W", "watt", "watts")
	def(1e-3, PowerDims, "mW", "milliwatt", "milliwatts")
	def(1e-6, PowerDims, "uW")
	def(1e3, PowerDims, "kW", "kilowatt", "kilowatts")

	def(1, TimeDims, "s", "sec", "secs", "second", "seconds")
	def(1e-3, TimeDims, "ms", "millisecond", "milliseconds")
	def(1e-6, TimeDims, "us", "microsecond", "microseconds")
	r.units["µs"] = r.units["us"]
	def(60, TimeDims, "min", "minute", "minutes")
	def(3600, TimeDims, "h", "hr", "hrs", "hour", "hours")
	def(86400, TimeDims, "d", "day", "days")

	def(0.01, Dimless, "%", "percent")

	return r
}

// Lookup resolves a unit symbol or long name.
func (r *Registry) Lookup(symbol string) (Unit, bool) {
	if u, ok := r.units[symbol]; ok {
		return u, true
	}
	u, ok := r.units[strings.ToLower(symbol)]
	return u, ok
}

// MustUnit is Lookup for symbols known at compile time; it panics on an
// unknown symbol.
func (r *Registry) MustUnit(symbol string) Unit {
	u, ok := r.Lookup(symbol)
	if !ok {
		panic(fmt.Sprintf("quantity: unknown unit %q", symbol))
	}
	return u
}

// Parse interprets a textual physical-quantity expression of the form
// "<signed decimal number> <unit>" ("3.3 V", "120 mA", "1 h"). The unit
// token may also be attached to the number ("100mA"). A plain number with
// no unit fails with ErrNoUnits: every electrical and temporal value in
// this system must carry an explicit unit. Any other malformed input fails
// with ErrUnitSyntax.
func (r *Registry) Parse(text string) (Quantity, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Quantity{}, fmt.Errorf("%w: empty expression", ErrUnitSyntax)
	}

	mag, rest, ok := splitMagnitude(s)
	if !ok {
		return Quantity{}, fmt.Errorf("%w: no numeric magnitude in %q", ErrUnitSyntax, text)
	}
	if math.IsNaN(mag) || math.IsInf(mag, 0) {
		return Quantity{}, fmt.Errorf("%w: non-finite magnitude in %q", ErrUnitSyntax, text)
	}
	if rest == "" {
		return Quantity{}, fmt.Errorf("%w: %q", ErrNoUnits, text)
	}

	u, ok := r.Lookup(rest)
	if !ok {
		return Quantity{}, fmt.Errorf("%w: unknown unit %q in %q", ErrUnitSyntax, rest, text)
	}
	return Quantity{mag: mag, uni: u}, nil
}

// MustParse is Parse for expressions known at compile time; it panics on
// invalid input.
func (r *Registry) MustParse(text string) Quantity {
	q, err := r.Parse(text)
	if err != nil {
		panic(err)
	}
	return q
}

// splitMagnitude takes the longest prefix of s that parses as a float and
// returns it together with the trimmed remainder.
func splitMagnitude(s string) (mag float64, rest string, ok bool) {
	for i := len(s); i > 0; i-- {
		head := strings.TrimSpace(s[:i])
		f, err := strconv.ParseFloat(head, 64)
		if err != nil {
			continue
		}
		return f, strings.TrimSpace(s[i:]), true
	}
	return 0, "", false
}
