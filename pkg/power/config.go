// Package power models the energy consumption of battery-powered hardware:
// subsystems with on/standby/sleep duty cycles, the battery that feeds them,
// and the scenario that ties both together. All electrical and temporal
// fields are dimensioned quantities; construction and every mutation
// validate dimensions and duty-cycle invariants before committing.
package power

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigError reports an unreadable, malformed, or incomplete configuration
// source. File names the offending file (empty for in-memory construction)
// and Key the missing or invalid field, when known. The underlying cause is
// preserved for errors.Is/errors.As matching.
type ConfigError struct {
	File string
	Key  string
	Err  error
}

func (e *ConfigError) Error() string {
	file := e.File
	if file == "" {
		file = "configuration"
	}
	if e.Key != "" {
		return fmt.Sprintf("%s: key %q: %v", file, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", file, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Percent is a percentage that unmarshals from either a YAML number or a
// numeric string ("12" or "12.5"). Non-numeric input fails with
// ErrNotANumber; the [0, 100] range is enforced by the model consuming it.
type Percent float64

func (p *Percent) UnmarshalYAML(node *yaml.Node) error {
	var f float64
	if err := node.Decode(&f); err == nil {
		*p = Percent(f)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("%w: %s", ErrNotANumber, node.Tag)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	*p = Percent(f)
	return nil
}

// SubsystemConfig mirrors a subsystem YAML file. Electrical values are
// quantity expressions ("3.3 V", "120 mA"). Pointer fields distinguish
// absent keys from empty ones.
type SubsystemConfig struct {
	Vendor         *string `yaml:"vendor"`
	PartNumber     *string `yaml:"part_number"`
	Voltage        *string `yaml:"voltage"`
	OnCurrent      *string `yaml:"on_current"`
	StandbyCurrent *string `yaml:"standby_current"`
	SleepCurrent   *string `yaml:"sleep_current"`
}

func (c *SubsystemConfig) validate(file string) error {
	for _, f := range []struct {
		key string
		val *string
	}{
		{"voltage", c.Voltage},
		{"on_current", c.OnCurrent},
		{"standby_current", c.StandbyCurrent},
		{"sleep_current", c.SleepCurrent},
		{"part_number", c.PartNumber},
		{"vendor", c.Vendor},
	} {
		if f.val == nil {
			return &ConfigError{File: file, Key: f.key, Err: ErrMissingKey}
		}
	}
	return nil
}

// DutyCycles is the timing record supplied alongside a subsystem
// configuration: duty cycles as percentages of the time period, the period
// itself as a time-quantity expression ("1 h"). The sleep duty cycle is
// never supplied; it is derived as the remainder.
type DutyCycles struct {
	OnDutyCycle      *Percent `yaml:"on_duty_cycle"`
	StandbyDutyCycle *Percent `yaml:"standby_duty_cycle"`
	TimePeriod       *string  `yaml:"time_period"`
}

func (c *DutyCycles) validate(file string) error {
	for _, f := range []struct {
		key     string
		present bool
	}{
		{"on_duty_cycle", c.OnDutyCycle != nil},
		{"standby_duty_cycle", c.StandbyDutyCycle != nil},
		{"time_period", c.TimePeriod != nil},
	} {
		if !f.present {
			return &ConfigError{File: file, Key: f.key, Err: ErrMissingKey}
		}
	}
	return nil
}

// BatteryConfig mirrors a battery YAML file: identity at the top level,
// electrical characteristics nested under electrical_params.
type BatteryConfig struct {
	Vendor           *string           `yaml:"vendor"`
	PartNumber       *string           `yaml:"part_number"`
	ElectricalParams *ElectricalParams `yaml:"electrical_params"`
}

// ElectricalParams holds a battery's electrical characteristics. Derating
// is a percentage of rated capacity lost to aging and manufacturing spread.
type ElectricalParams struct {
	OCVoltage    *string  `yaml:"oc_voltage"`
	ConstCurrent *string  `yaml:"const_current"`
	PulseCurrent *string  `yaml:"pulse_current"`
	Capacity     *string  `yaml:"capacity"`
	Derating     *Percent `yaml:"derating"`
}

func (c *BatteryConfig) validate(file string) error {
	for _, f := range []struct {
		key     string
		present bool
	}{
		{"vendor", c.Vendor != nil},
		{"part_number", c.PartNumber != nil},
		{"electrical_params", c.ElectricalParams != nil},
	} {
		if !f.present {
			return &ConfigError{File: file, Key: f.key, Err: ErrMissingKey}
		}
	}
	ep := c.ElectricalParams
	for _, f := range []struct {
		key     string
		present bool
	}{
		{"electrical_params.oc_voltage", ep.OCVoltage != nil},
		{"electrical_params.const_current", ep.ConstCurrent != nil},
		{"electrical_params.pulse_current", ep.PulseCurrent != nil},
		{"electrical_params.capacity", ep.Capacity != nil},
		{"electrical_params.derating", ep.Derating != nil},
	} {
		if !f.present {
			return &ConfigError{File: file, Key: f.key, Err: ErrMissingKey}
		}
	}
	return nil
}

// decodeYAMLFile performs the one scoped file read a model construction is
// allowed: open, decode, close on every exit path. Failures are wrapped in
// a *ConfigError naming the file.
func decodeYAMLFile(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return &ConfigError{File: path, Err: err}
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(out); err != nil {
		return &ConfigError{File: path, Err: err}
	}
	return nil
}
