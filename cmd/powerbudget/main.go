// Command powerbudget estimates the energy consumption of a battery-powered
// system and the resulting battery lifetime. It takes a scenario YAML file
// naming the subsystem and battery configuration files, computes the
// expected consumption over one hour and one day, and estimates how long
// the battery lasts if the consumption pattern holds.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"powerbudget/pkg/power"
	"powerbudget/pkg/quantity"
)

type opts struct {
	scenarioPath string
	jsonPath     string
	verbose      bool
}

type subsystemReport struct {
	PartNumber   string  `json:"part_number"`
	Vendor       string  `json:"vendor"`
	EnergyHourWh float64 `json:"energy_1h_wh"`
	EnergyDayWh  float64 `json:"energy_1d_wh"`
}

type report struct {
	Scenario      string            `json:"scenario"`
	Subsystems    []subsystemReport `json:"subsystems"`
	TotalHourWh   float64           `json:"total_1h_wh"`
	TotalDayWh    float64           `json:"total_1d_wh"`
	Battery       string            `json:"battery"`
	LifetimeHours float64           `json:"lifetime_hours"`
	LifetimeDays  float64           `json:"lifetime_days"`
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "powerbudget --scenario scenario.yml",
		Short: "System energy budget and battery lifetime estimation",
		Long: `powerbudget models the energy consumption of a set of hardware
subsystems, each with on/standby/sleep currents and duty cycles, over two
fixed horizons (one hour and one day), and estimates how long the specified
battery would sustain that consumption. The estimate accounts for capacity
derating and the design margin given in the scenario file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o)
		},
	}

	root.Flags().StringVar(&o.scenarioPath, "scenario", "", "scenario YAML file (required)")
	root.Flags().StringVar(&o.jsonPath, "json", "", "write the report as JSON to this file")
	root.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "log each constructed model")
	_ = root.MarkFlagRequired("scenario")

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := root.Execute(); err != nil {
		logger.Fatal().Err(err).Msg("scenario failed")
	}
}

func run(o opts) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !o.verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}

	reg := quantity.NewRegistry()

	sc, err := power.LoadScenario(reg, o.scenarioPath)
	if err != nil {
		return err
	}
	logger.Info().Str("scenario", sc.Name).Int("subsystems", len(sc.Subsystems)).Msg("scenario loaded")

	var (
		hour = quantity.New(1, reg.MustUnit("h"))
		day  = quantity.New(1, reg.MustUnit("d"))
		wh   = reg.MustUnit("Wh")
	)

	rep := report{
		Scenario: sc.Name,
		Battery:  fmt.Sprintf("%s (%s)", sc.Battery.PartNumber, sc.Battery.Vendor),
	}

	for _, sub := range sc.Subsystems {
		logger.Info().Str("part", sub.PartNumber).Msg(sub.String())

		eh, err := energyIn(sub, hour, wh)
		if err != nil {
			return fmt.Errorf("subsystem %s: %w", sub.PartNumber, err)
		}
		ed, err := energyIn(sub, day, wh)
		if err != nil {
			return fmt.Errorf("subsystem %s: %w", sub.PartNumber, err)
		}
		rep.Subsystems = append(rep.Subsystems, subsystemReport{
			PartNumber:   sub.PartNumber,
			Vendor:       sub.Vendor,
			EnergyHourWh: eh,
			EnergyDayWh:  ed,
		})
		rep.TotalHourWh += eh
		rep.TotalDayWh += ed
	}

	lifetime, err := sc.EstimateLifetime(reg.MustUnit("h"))
	if err != nil {
		return err
	}
	rep.LifetimeHours = lifetime.Magnitude()
	rep.LifetimeDays = lifetime.Magnitude() / 24

	printReport(rep)

	if o.jsonPath != "" {
		if err := writeJSON(o.jsonPath, rep); err != nil {
			return fmt.Errorf("json report: %w", err)
		}
		logger.Info().Str("path", o.jsonPath).Msg("json report written")
	}
	return nil
}

// energyIn computes a subsystem's total consumption over the period,
// expressed in the given energy unit.
func energyIn(sub *power.Subsystem, period quantity.Quantity, u quantity.Unit) (float64, error) {
	e, err := sub.TotalEnergyConsumption(period)
	if err != nil {
		return 0, err
	}
	converted, err := e.ConvertTo(u)
	if err != nil {
		return 0, err
	}
	return converted.Magnitude(), nil
}

func printReport(rep report) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	if rep.Scenario != "" {
		fmt.Fprintf(tw, "Scenario: %s\n\n", rep.Scenario)
	}
	fmt.Fprintln(tw, "PART\tVENDOR\tE(1h)\tE(1d)")
	for _, s := range rep.Subsystems {
		fmt.Fprintf(tw, "%s\t%s\t%.5f Wh\t%.5f Wh\n", s.PartNumber, s.Vendor, s.EnergyHourWh, s.EnergyDayWh)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%.5f Wh\t%.5f Wh\n\n", rep.TotalHourWh, rep.TotalDayWh)
	fmt.Fprintf(tw, "Battery: %s\n", rep.Battery)
	fmt.Fprintf(tw, "Estimated lifetime: %.1f hours (%.2f days)\n", rep.LifetimeHours, rep.LifetimeDays)
	_ = tw.Flush()
}

func writeJSON(path string, rep report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
