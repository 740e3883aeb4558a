package power

import (
	"fmt"
	"math"
	"strings"

	"powerbudget/pkg/quantity"
)

// Battery models a power source: open-circuit voltage, continuous and pulse
// current ratings, rated capacity, and the derating and design-margin
// factors that reduce it to a design capacity.
//
// Derived state (individual and total design capacity, cell counts) is
// recomputed on every mutation that affects it and is exposed through
// accessors only; there are no setters for derived fields. Not safe for
// concurrent mutation.
type Battery struct {
	Vendor     string
	PartNumber string

	reg *quantity.Registry

	ocVoltage quantity.Quantity
	constCur  quantity.Quantity
	pulseCur  quantity.Quantity
	capacity  quantity.Quantity

	derating float64
	margin   float64

	parCells int
	serCells int

	desCap    quantity.Quantity
	totDesCap quantity.Quantity
}

// NewBattery builds a battery from an in-memory configuration plus the
// externally supplied design margin percentage. Capacity may be given in
// charge units (mAh, Ah) or directly in energy units (Wh, J). Cell counts
// start at one in parallel and one in series; use SizeCells to resize.
func NewBattery(reg *quantity.Registry, cfg BatteryConfig, designMargin Percent) (*Battery, error) {
	return newBattery(reg, cfg, designMargin, "")
}

// LoadBattery reads a battery configuration file and builds the model from
// it; errors name the file.
func LoadBattery(reg *quantity.Registry, path string, designMargin Percent) (*Battery, error) {
	var cfg BatteryConfig
	if err := decodeYAMLFile(path, &cfg); err != nil {
		return nil, err
	}
	return newBattery(reg, cfg, designMargin, path)
}

func newBattery(reg *quantity.Registry, cfg BatteryConfig, designMargin Percent, file string) (*Battery, error) {
	if err := cfg.validate(file); err != nil {
		return nil, err
	}
	ep := cfg.ElectricalParams

	b := &Battery{
		Vendor:     *cfg.Vendor,
		PartNumber: *cfg.PartNumber,
		reg:        reg,
		parCells:   1,
		serCells:   1,
	}

	var err error
	if b.ocVoltage, err = parseAs(reg, file, "oc_voltage", *ep.OCVoltage, quantity.VoltageDims); err != nil {
		return nil, err
	}
	if b.constCur, err = parseAs(reg, file, "const_current", *ep.ConstCurrent, quantity.CurrentDims); err != nil {
		return nil, err
	}
	if b.pulseCur, err = parseAs(reg, file, "pulse_current", *ep.PulseCurrent, quantity.CurrentDims); err != nil {
		return nil, err
	}
	if b.capacity, err = parseCapacity(reg, file, *ep.Capacity); err != nil {
		return nil, err
	}

	if b.derating, err = fractionOf(float64(*ep.Derating), "derating"); err != nil {
		return nil, err
	}
	if b.margin, err = fractionOf(float64(designMargin), "design_margin"); err != nil {
		return nil, err
	}

	b.recomputeDesignCapacity()
	return b, nil
}

// parseCapacity accepts a capacity in charge or energy units.
func parseCapacity(reg *quantity.Registry, file, text string) (quantity.Quantity, error) {
	q, err := reg.Parse(strings.TrimSpace(text))
	if err != nil {
		return quantity.Quantity{}, &ConfigError{File: file, Key: "capacity", Err: err}
	}
	if !q.Is(quantity.ChargeDims) && !q.Is(quantity.EnergyDims) {
		return quantity.Quantity{}, &ConfigError{File: file, Key: "capacity",
			Err: fmt.Errorf("%w: %q is neither charge nor energy", quantity.ErrDimensionMismatch, text)}
	}
	return q, nil
}

// recomputeDesignCapacity re-derives both design capacities from the rated
// capacity, derating, margin, and parallel cell count. Called after every
// mutation of one of those inputs.
func (b *Battery) recomputeDesignCapacity() {
	b.desCap = b.capacity.MulScalar((1 - b.derating) * (1 - b.margin))
	b.totDesCap = b.desCap.MulScalar(float64(b.parCells))
}

// CalcLifetime estimates how long the battery sustains the given energy
// consumption. The consumption argument is the energy drawn over one unit
// of period (e.g. watt-hours per hour); the result is the number of such
// periods the total design capacity covers, expressed in period.
//
// Capacity given in charge units is converted to energy against the pack
// reference voltage, oc_voltage x series cells (the parallel count is
// already folded into the total design capacity). If the capacity/
// consumption ratio is not dimensionless the operation fails with
// ErrDimensionMismatch.
func (b *Battery) CalcLifetime(consumption quantity.Quantity, period quantity.Unit) (quantity.Quantity, error) {
	capBase := b.totDesCap.ToBase()
	if capBase.Is(quantity.ChargeDims) {
		packVoltage := b.ocVoltage.ToBase().MulScalar(float64(b.serCells))
		capBase = capBase.Mul(packVoltage)
	}

	ratio := capBase.Div(consumption.ToBase())
	if !ratio.IsDimensionless() {
		return quantity.Quantity{}, fmt.Errorf("lifetime: %w: capacity %s over consumption %s",
			quantity.ErrDimensionMismatch, capBase.Dimensions(), consumption.Dimensions())
	}
	if !dimsEqualTime(period) {
		return quantity.Quantity{}, fmt.Errorf("lifetime: %w: %q is not a time unit",
			quantity.ErrDimensionMismatch, period.Symbol)
	}
	return quantity.New(ratio.Magnitude(), period), nil
}

func dimsEqualTime(u quantity.Unit) bool {
	return quantity.New(0, u).Is(quantity.TimeDims)
}

// SizeCells sizes the parallel and series cell counts for the given load
// extremes: parallel cells must sustain the average current continuously
// and the maximum current in pulses, series cells must stack up to the
// maximum bus voltage. Both counts are at least one. The total design
// capacity is recomputed for the new parallel count.
func (b *Battery) SizeCells(maxCurrent, avgCurrent, maxVoltage quantity.Quantity) error {
	if !maxCurrent.Is(quantity.CurrentDims) {
		return fmt.Errorf("max_current: %w: got %s", quantity.ErrDimensionMismatch, maxCurrent.Dimensions())
	}
	if !avgCurrent.Is(quantity.CurrentDims) {
		return fmt.Errorf("avg_current: %w: got %s", quantity.ErrDimensionMismatch, avgCurrent.Dimensions())
	}
	if !maxVoltage.Is(quantity.VoltageDims) {
		return fmt.Errorf("max_voltage: %w: got %s", quantity.ErrDimensionMismatch, maxVoltage.Dimensions())
	}

	par := max(ceilRatio(avgCurrent, b.constCur), ceilRatio(maxCurrent, b.pulseCur))
	ser := ceilRatio(maxVoltage, b.ocVoltage)
	b.parCells = max(par, 1)
	b.serCells = max(ser, 1)
	b.recomputeDesignCapacity()
	return nil
}

// ceilRatio divides two quantities of the same dimension and rounds up.
func ceilRatio(a, b quantity.Quantity) int {
	return int(math.Ceil(a.ToBase().Magnitude() / b.ToBase().Magnitude()))
}

// OCVoltage returns the per-cell open-circuit voltage.
func (b *Battery) OCVoltage() quantity.Quantity { return b.ocVoltage }

// ConstCurrent returns the continuous discharge current rating.
func (b *Battery) ConstCurrent() quantity.Quantity { return b.constCur }

// PulseCurrent returns the pulse discharge current rating.
func (b *Battery) PulseCurrent() quantity.Quantity { return b.pulseCur }

// Capacity returns the rated (beginning-of-life) capacity of one cell.
func (b *Battery) Capacity() quantity.Quantity { return b.capacity }

// Derating returns the derating fraction in [0, 1].
func (b *Battery) Derating() float64 { return b.derating }

// DesignMargin returns the design-margin fraction in [0, 1].
func (b *Battery) DesignMargin() float64 { return b.margin }

// ParallelCells returns the parallel cell count. Read-only: cell counts
// change only through SizeCells.
func (b *Battery) ParallelCells() int { return b.parCells }

// SeriesCells returns the series cell count.
func (b *Battery) SeriesCells() int { return b.serCells }

// TotalCells returns parallel x series.
func (b *Battery) TotalCells() int { return b.parCells * b.serCells }

// DesignCapacityIndividual returns the single-cell capacity after derating
// and design margin.
func (b *Battery) DesignCapacityIndividual() quantity.Quantity { return b.desCap }

// DesignCapacityTotal returns the design capacity across all parallel
// cells.
func (b *Battery) DesignCapacityTotal() quantity.Quantity { return b.totDesCap }

// SetOCVoltage re-parses and dimension-checks the open-circuit voltage.
func (b *Battery) SetOCVoltage(text string) error {
	return setQuantityField(b.reg, &b.ocVoltage, "oc_voltage", text, quantity.VoltageDims)
}

// SetConstCurrent updates the continuous discharge rating.
func (b *Battery) SetConstCurrent(text string) error {
	return setQuantityField(b.reg, &b.constCur, "const_current", text, quantity.CurrentDims)
}

// SetPulseCurrent updates the pulse discharge rating.
func (b *Battery) SetPulseCurrent(text string) error {
	return setQuantityField(b.reg, &b.pulseCur, "pulse_current", text, quantity.CurrentDims)
}

// SetCapacity updates the rated capacity (charge or energy units) and
// recomputes both design capacities.
func (b *Battery) SetCapacity(text string) error {
	q, err := parseCapacity(b.reg, "", text)
	if err != nil {
		return err
	}
	b.capacity = q
	b.recomputeDesignCapacity()
	return nil
}

// SetDerating updates the derating percentage and recomputes the design
// capacities.
func (b *Battery) SetDerating(pct float64) error {
	f, err := fractionOf(pct, "derating")
	if err != nil {
		return err
	}
	b.derating = f
	b.recomputeDesignCapacity()
	return nil
}

// SetDesignMargin updates the design-margin percentage and recomputes the
// design capacities.
func (b *Battery) SetDesignMargin(pct float64) error {
	f, err := fractionOf(pct, "design_margin")
	if err != nil {
		return err
	}
	b.margin = f
	b.recomputeDesignCapacity()
	return nil
}

// String renders the battery summary.
func (b *Battery) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Battery %s from vendor %s\n", b.PartNumber, b.Vendor)
	fmt.Fprintf(&sb, "\tOpen-circuit voltage: %s\n", b.ocVoltage)
	fmt.Fprintf(&sb, "\tConstant current: %s\n", b.constCur)
	fmt.Fprintf(&sb, "\tPulse current: %s\n", b.pulseCur)
	fmt.Fprintf(&sb, "\tBOL capacity: %s\n", b.capacity)
	fmt.Fprintf(&sb, "\tDe-rating: %g%%\n", b.derating*100)
	fmt.Fprintf(&sb, "\tDesign margin: %g%%\n", b.margin*100)
	fmt.Fprintf(&sb, "\tCells: %d parallel x %d series\n", b.parCells, b.serCells)
	return sb.String()
}
