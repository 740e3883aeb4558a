package power

import (
	"fmt"
	"path/filepath"

	"powerbudget/pkg/quantity"
)

// ScenarioConfig mirrors a scenario YAML file: the subsystems making up the
// system, each with its own configuration file and duty-cycle record, plus
// the battery powering them and its design margin.
type ScenarioConfig struct {
	Name       string              `yaml:"name"`
	Subsystems []ScenarioSubsystem `yaml:"subsystems"`
	Battery    *ScenarioBattery    `yaml:"battery"`
}

// ScenarioSubsystem names one subsystem configuration file and supplies its
// timing. Relative paths resolve against the scenario file's directory.
type ScenarioSubsystem struct {
	Config     string     `yaml:"config"`
	DutyCycles DutyCycles `yaml:"duty_cycles"`
}

// ScenarioBattery names the battery configuration file and supplies the
// design margin percentage.
type ScenarioBattery struct {
	Config       string   `yaml:"config"`
	DesignMargin *Percent `yaml:"design_margin"`
}

// Scenario aggregates the constructed models of one energy-budget run.
type Scenario struct {
	Name       string
	Subsystems []*Subsystem
	Battery    *Battery
}

// LoadScenario reads a scenario file and builds every subsystem and the
// battery it references. Any validation failure surfaces the offending
// file.
func LoadScenario(reg *quantity.Registry, path string) (*Scenario, error) {
	var cfg ScenarioConfig
	if err := decodeYAMLFile(path, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Subsystems) == 0 {
		return nil, &ConfigError{File: path, Key: "subsystems", Err: ErrMissingKey}
	}
	if cfg.Battery == nil {
		return nil, &ConfigError{File: path, Key: "battery", Err: ErrMissingKey}
	}
	if cfg.Battery.DesignMargin == nil {
		return nil, &ConfigError{File: path, Key: "battery.design_margin", Err: ErrMissingKey}
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	sc := &Scenario{Name: cfg.Name}
	for i, entry := range cfg.Subsystems {
		if entry.Config == "" {
			return nil, &ConfigError{File: path,
				Key: fmt.Sprintf("subsystems[%d].config", i), Err: ErrMissingKey}
		}
		sub, err := LoadSubsystem(reg, resolve(entry.Config), entry.DutyCycles)
		if err != nil {
			return nil, err
		}
		sc.Subsystems = append(sc.Subsystems, sub)
	}

	bat, err := LoadBattery(reg, resolve(cfg.Battery.Config), *cfg.Battery.DesignMargin)
	if err != nil {
		return nil, err
	}
	sc.Battery = bat

	return sc, nil
}

// TotalEnergyConsumption sums every subsystem's total consumption over the
// given period.
func (sc *Scenario) TotalEnergyConsumption(period quantity.Quantity) (quantity.Quantity, error) {
	var total quantity.Quantity
	for i, sub := range sc.Subsystems {
		e, err := sub.TotalEnergyConsumption(period)
		if err != nil {
			return quantity.Quantity{}, fmt.Errorf("subsystem %s: %w", sub.PartNumber, err)
		}
		if i == 0 {
			total = e
			continue
		}
		if total, err = total.Add(e); err != nil {
			return quantity.Quantity{}, fmt.Errorf("subsystem %s: %w", sub.PartNumber, err)
		}
	}
	return total, nil
}

// EstimateLifetime feeds the scenario's consumption over one unit of period
// into the battery and returns the estimated operating duration expressed
// in that unit.
func (sc *Scenario) EstimateLifetime(period quantity.Unit) (quantity.Quantity, error) {
	consumption, err := sc.TotalEnergyConsumption(quantity.New(1, period))
	if err != nil {
		return quantity.Quantity{}, err
	}
	return sc.Battery.CalcLifetime(consumption, period)
}
