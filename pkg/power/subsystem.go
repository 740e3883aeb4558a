package power

import (
	"fmt"
	"strings"

	"powerbudget/pkg/quantity"

	"gonum.org/v1/gonum/unit"
)

// defaultDutyCycleTolerance is the epsilon for the duty-cycle partition
// check: the derived sleep cycle must exceed it. The check is deliberately
// explicit rather than a rounding comparison so that, for example,
// on 60% + standby 39.9% is accepted (sleep 0.1%) while any combination
// summing to 100% or more is rejected.
const defaultDutyCycleTolerance = 1e-9

// Subsystem models one hardware module's electrical behavior across its
// on/standby/sleep states over a duty-cycle-partitioned time period.
//
// The three duty cycles always sum to one: the sleep cycle is derived from
// the other two and has no setter. Mutators validate the incoming value and
// the resulting invariants before committing, so a failed mutation leaves
// the subsystem in its prior consistent state. Not safe for concurrent
// mutation; callers embedding it in a concurrent host must serialize access
// per instance.
type Subsystem struct {
	Vendor     string
	PartNumber string

	reg *quantity.Registry
	tol float64

	voltage  quantity.Quantity
	onCur    quantity.Quantity
	stbyCur  quantity.Quantity
	sleepCur quantity.Quantity
	period   quantity.Quantity

	onCycle    float64
	stbyCycle  float64
	sleepCycle float64
}

// SubsystemOption adjusts subsystem construction.
type SubsystemOption func(*Subsystem)

// WithDutyCycleTolerance overrides the epsilon below which the derived
// sleep duty cycle counts as zero.
func WithDutyCycleTolerance(tol float64) SubsystemOption {
	return func(s *Subsystem) { s.tol = tol }
}

// NewSubsystem builds a subsystem from an in-memory configuration and a
// separately supplied duty-cycle record. Missing keys fail with
// *ConfigError, unparseable quantity text with ErrUnitSyntax/ErrNoUnits,
// wrong dimensions with ErrDimensionMismatch, and a duty-cycle pair that
// leaves no positive sleep remainder with ErrDutyCycleSum.
func NewSubsystem(reg *quantity.Registry, cfg SubsystemConfig, cycles DutyCycles, opts ...SubsystemOption) (*Subsystem, error) {
	return newSubsystem(reg, cfg, cycles, "", opts)
}

// LoadSubsystem reads a subsystem configuration file and builds the model
// from it; errors name the file.
func LoadSubsystem(reg *quantity.Registry, path string, cycles DutyCycles, opts ...SubsystemOption) (*Subsystem, error) {
	var cfg SubsystemConfig
	if err := decodeYAMLFile(path, &cfg); err != nil {
		return nil, err
	}
	return newSubsystem(reg, cfg, cycles, path, opts)
}

func newSubsystem(reg *quantity.Registry, cfg SubsystemConfig, cycles DutyCycles, file string, opts []SubsystemOption) (*Subsystem, error) {
	if err := cfg.validate(file); err != nil {
		return nil, err
	}
	if err := cycles.validate(file); err != nil {
		return nil, err
	}

	s := &Subsystem{
		Vendor:     *cfg.Vendor,
		PartNumber: *cfg.PartNumber,
		reg:        reg,
		tol:        defaultDutyCycleTolerance,
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.voltage, err = parseAs(reg, file, "voltage", *cfg.Voltage, quantity.VoltageDims); err != nil {
		return nil, err
	}
	if s.onCur, err = parseAs(reg, file, "on_current", *cfg.OnCurrent, quantity.CurrentDims); err != nil {
		return nil, err
	}
	if s.stbyCur, err = parseAs(reg, file, "standby_current", *cfg.StandbyCurrent, quantity.CurrentDims); err != nil {
		return nil, err
	}
	if s.sleepCur, err = parseAs(reg, file, "sleep_current", *cfg.SleepCurrent, quantity.CurrentDims); err != nil {
		return nil, err
	}
	if s.period, err = parseAs(reg, file, "time_period", *cycles.TimePeriod, quantity.TimeDims); err != nil {
		return nil, err
	}

	on, err := fractionOf(float64(*cycles.OnDutyCycle), "on_duty_cycle")
	if err != nil {
		return nil, err
	}
	stby, err := fractionOf(float64(*cycles.StandbyDutyCycle), "standby_duty_cycle")
	if err != nil {
		return nil, err
	}

	sleep := 1.0 - (on + stby)
	if sleep <= s.tol {
		return nil, fmt.Errorf("%w: on %g%% + standby %g%% leaves no sleep time",
			ErrDutyCycleSum, on*100, stby*100)
	}
	s.onCycle, s.stbyCycle, s.sleepCycle = on, stby, sleep

	return s, nil
}

// parseAs parses a quantity expression and checks it has the expected
// dimensions, wrapping failures in a *ConfigError so the offending file and
// key are named while the original cause stays matchable with errors.Is.
func parseAs(reg *quantity.Registry, file, key, text string, want unit.Dimensions) (quantity.Quantity, error) {
	q, err := reg.Parse(strings.TrimSpace(text))
	if err != nil {
		return quantity.Quantity{}, &ConfigError{File: file, Key: key, Err: err}
	}
	if !q.Is(want) {
		return quantity.Quantity{}, &ConfigError{File: file, Key: key,
			Err: fmt.Errorf("%w: %q has dimensions %s", quantity.ErrDimensionMismatch, text, q.Dimensions())}
	}
	return q, nil
}

// fractionOf converts a percentage in [0, 100] to a fraction.
func fractionOf(pct float64, field string) (float64, error) {
	if pct < 0 || pct > 100 {
		return 0, fmt.Errorf("%s: %w: %g", field, ErrPercentRange, pct)
	}
	return pct / 100.0, nil
}

// resolvePeriod picks the override period when one is supplied, otherwise
// the subsystem's stored one. An override must be a time quantity.
func (s *Subsystem) resolvePeriod(period []quantity.Quantity) (quantity.Quantity, error) {
	if len(period) == 0 {
		return s.period, nil
	}
	p := period[0]
	if !p.Is(quantity.TimeDims) {
		return quantity.Quantity{}, fmt.Errorf("time period: %w: got %s",
			quantity.ErrDimensionMismatch, p.Dimensions())
	}
	return p, nil
}

// OnEnergyConsumption returns the energy consumed in the on state over the
// given period (defaulting to the stored time period):
// voltage x on current x on duty cycle x period.
func (s *Subsystem) OnEnergyConsumption(period ...quantity.Quantity) (quantity.Quantity, error) {
	p, err := s.resolvePeriod(period)
	if err != nil {
		return quantity.Quantity{}, err
	}
	return s.voltage.Mul(s.onCur).MulScalar(s.onCycle).Mul(p), nil
}

// StandbyEnergyConsumption returns the energy consumed in the standby state
// over the given period.
func (s *Subsystem) StandbyEnergyConsumption(period ...quantity.Quantity) (quantity.Quantity, error) {
	p, err := s.resolvePeriod(period)
	if err != nil {
		return quantity.Quantity{}, err
	}
	return s.voltage.Mul(s.stbyCur).MulScalar(s.stbyCycle).Mul(p), nil
}

// SleepEnergyConsumption returns the energy consumed in the sleep state
// over the given period.
func (s *Subsystem) SleepEnergyConsumption(period ...quantity.Quantity) (quantity.Quantity, error) {
	p, err := s.resolvePeriod(period)
	if err != nil {
		return quantity.Quantity{}, err
	}
	return s.voltage.Mul(s.sleepCur).MulScalar(s.sleepCycle).Mul(p), nil
}

// TotalEnergyConsumption sums the three state energies over the given
// period.
func (s *Subsystem) TotalEnergyConsumption(period ...quantity.Quantity) (quantity.Quantity, error) {
	on, err := s.OnEnergyConsumption(period...)
	if err != nil {
		return quantity.Quantity{}, err
	}
	stby, err := s.StandbyEnergyConsumption(period...)
	if err != nil {
		return quantity.Quantity{}, err
	}
	sleep, err := s.SleepEnergyConsumption(period...)
	if err != nil {
		return quantity.Quantity{}, err
	}
	total, err := on.Add(stby)
	if err != nil {
		return quantity.Quantity{}, err
	}
	return total.Add(sleep)
}

// Voltage returns the supply voltage.
func (s *Subsystem) Voltage() quantity.Quantity { return s.voltage }

// OnCurrent returns the on-state current draw.
func (s *Subsystem) OnCurrent() quantity.Quantity { return s.onCur }

// StandbyCurrent returns the standby-state current draw.
func (s *Subsystem) StandbyCurrent() quantity.Quantity { return s.stbyCur }

// SleepCurrent returns the sleep-state current draw.
func (s *Subsystem) SleepCurrent() quantity.Quantity { return s.sleepCur }

// TimePeriod returns the stored duty-cycle time period.
func (s *Subsystem) TimePeriod() quantity.Quantity { return s.period }

// OnDutyCycle returns the on-state fraction of the period, in [0, 1].
func (s *Subsystem) OnDutyCycle() float64 { return s.onCycle }

// StandbyDutyCycle returns the standby-state fraction of the period.
func (s *Subsystem) StandbyDutyCycle() float64 { return s.stbyCycle }

// SleepDutyCycle returns the derived sleep fraction,
// 1 - (on + standby). It is read-only: there is no corresponding setter.
func (s *Subsystem) SleepDutyCycle() float64 { return s.sleepCycle }

// SetVoltage re-parses and dimension-checks the supply voltage. A bare
// number fails with ErrNoUnits.
func (s *Subsystem) SetVoltage(text string) error {
	return s.setElectrical(&s.voltage, "voltage", text, quantity.VoltageDims)
}

// SetOnCurrent updates the on-state current draw.
func (s *Subsystem) SetOnCurrent(text string) error {
	return s.setElectrical(&s.onCur, "on_current", text, quantity.CurrentDims)
}

// SetStandbyCurrent updates the standby-state current draw.
func (s *Subsystem) SetStandbyCurrent(text string) error {
	return s.setElectrical(&s.stbyCur, "standby_current", text, quantity.CurrentDims)
}

// SetSleepCurrent updates the sleep-state current draw.
func (s *Subsystem) SetSleepCurrent(text string) error {
	return s.setElectrical(&s.sleepCur, "sleep_current", text, quantity.CurrentDims)
}

// SetTimePeriod updates the stored duty-cycle time period.
func (s *Subsystem) SetTimePeriod(text string) error {
	return s.setElectrical(&s.period, "time_period", text, quantity.TimeDims)
}

func (s *Subsystem) setElectrical(dst *quantity.Quantity, field, text string, want unit.Dimensions) error {
	return setQuantityField(s.reg, dst, field, text, want)
}

// setQuantityField is the shared mutator body for every dimensioned field:
// parse, check dimensions, and only then commit.
func setQuantityField(reg *quantity.Registry, dst *quantity.Quantity, field, text string, want unit.Dimensions) error {
	q, err := reg.Parse(text)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if !q.Is(want) {
		return fmt.Errorf("%s: %w: %q has dimensions %s",
			field, quantity.ErrDimensionMismatch, text, q.Dimensions())
	}
	*dst = q
	return nil
}

// SetOnDutyCycle updates the on-state percentage and re-derives the sleep
// cycle. The new partition is validated before anything is committed: a
// rejected value leaves all three cycles untouched.
func (s *Subsystem) SetOnDutyCycle(pct float64) error {
	on, err := fractionOf(pct, "on_duty_cycle")
	if err != nil {
		return err
	}
	return s.commitCycles(on, s.stbyCycle)
}

// SetStandbyDutyCycle updates the standby-state percentage and re-derives
// the sleep cycle, with the same validate-before-commit contract.
func (s *Subsystem) SetStandbyDutyCycle(pct float64) error {
	stby, err := fractionOf(pct, "standby_duty_cycle")
	if err != nil {
		return err
	}
	return s.commitCycles(s.onCycle, stby)
}

func (s *Subsystem) commitCycles(on, stby float64) error {
	sleep := 1.0 - (on + stby)
	if sleep <= s.tol {
		return fmt.Errorf("%w: on %g%% + standby %g%% leaves no sleep time",
			ErrDutyCycleSum, on*100, stby*100)
	}
	s.onCycle, s.stbyCycle, s.sleepCycle = on, stby, sleep
	return nil
}

// String renders the part summary.
func (s *Subsystem) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Module %s from vendor %s\n", s.PartNumber, s.Vendor)
	fmt.Fprintf(&b, "\tVoltage: %s\n", s.voltage)
	fmt.Fprintf(&b, "\tOn current: %s\n", s.onCur)
	fmt.Fprintf(&b, "\tStandby current: %s\n", s.stbyCur)
	fmt.Fprintf(&b, "\tSleep current: %s\n", s.sleepCur)
	fmt.Fprintf(&b, "\tOn duty cycle: %g%%\n", s.onCycle*100)
	fmt.Fprintf(&b, "\tStandby duty cycle: %g%%\n", s.stbyCycle*100)
	fmt.Fprintf(&b, "\tSleep duty cycle: %g%%\n", s.sleepCycle*100)
	fmt.Fprintf(&b, "\tTime period: %s\n", s.period)
	return b.String()
}
