package power

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerbudget/pkg/quantity"
)

func strp(s string) *string { return &s }

func pctp(f float64) *Percent {
	p := Percent(f)
	return &p
}

func validSubsystemConfig() SubsystemConfig {
	return SubsystemConfig{
		Vendor:         strp("Acme"),
		PartNumber:     strp("RF-101"),
		Voltage:        strp("3.3 V"),
		OnCurrent:      strp("100 mA"),
		StandbyCurrent: strp("10 mA"),
		SleepCurrent:   strp("1 mA"),
	}
}

func validCycles() DutyCycles {
	return DutyCycles{
		OnDutyCycle:      pctp(10),
		StandbyDutyCycle: pctp(20),
		TimePeriod:       strp("1 h"),
	}
}

func TestSubsystem_SleepCycleIsDerived(t *testing.T) {
	reg := quantity.NewRegistry()

	tests := []struct{ on, stby float64 }{
		{10, 20},
		{0, 0},
		{50, 49.9},
		{99.9, 0},
		{33.3, 33.3},
		{0.001, 0.001},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("on=%g stby=%g", tt.on, tt.stby), func(t *testing.T) {
			cycles := DutyCycles{
				OnDutyCycle:      pctp(tt.on),
				StandbyDutyCycle: pctp(tt.stby),
				TimePeriod:       strp("1 h"),
			}
			s, err := NewSubsystem(reg, validSubsystemConfig(), cycles)
			require.NoError(t, err)

			assert.InDelta(t, (100-tt.on-tt.stby)/100, s.SleepDutyCycle(), 1e-9)
			assert.InDelta(t, 1.0, s.OnDutyCycle()+s.StandbyDutyCycle()+s.SleepDutyCycle(), 1e-9)
		})
	}
}

func TestSubsystem_RejectsFullDutyCycle(t *testing.T) {
	reg := quantity.NewRegistry()

	for _, tt := range []struct{ on, stby float64 }{
		{60, 40},
		{100, 0},
		{80, 20},
		{50, 50},
	} {
		cycles := DutyCycles{
			OnDutyCycle:      pctp(tt.on),
			StandbyDutyCycle: pctp(tt.stby),
			TimePeriod:       strp("1 h"),
		}
		_, err := NewSubsystem(reg, validSubsystemConfig(), cycles)
		require.ErrorIs(t, err, ErrDutyCycleSum, "on=%g stby=%g", tt.on, tt.stby)
	}
}

func TestSubsystem_DutyCycleToleranceOption(t *testing.T) {
	reg := quantity.NewRegistry()

	cycles := DutyCycles{
		OnDutyCycle:      pctp(60),
		StandbyDutyCycle: pctp(39.5),
		TimePeriod:       strp("1 h"),
	}

	// 0.5% sleep remainder passes the default tolerance
	_, err := NewSubsystem(reg, validSubsystemConfig(), cycles)
	require.NoError(t, err)

	// but not a 1% floor
	_, err = NewSubsystem(reg, validSubsystemConfig(), cycles, WithDutyCycleTolerance(0.01))
	require.ErrorIs(t, err, ErrDutyCycleSum)
}

func TestSubsystem_EnergyConsumptionExample(t *testing.T) {
	// Reference budget: 3.3 V, on 100 mA @ 10%, standby 10 mA @ 20%,
	// sleep 1 mA @ 70%, over 1 h:
	// 3.3 * (0.1*0.10 + 0.01*0.20 + 0.001*0.70) = 0.04191 Wh
	reg := quantity.NewRegistry()

	s, err := NewSubsystem(reg, validSubsystemConfig(), validCycles())
	require.NoError(t, err)
	require.InDelta(t, 0.70, s.SleepDutyCycle(), 1e-12)

	total, err := s.TotalEnergyConsumption()
	require.NoError(t, err)

	wh, err := total.ConvertTo(reg.MustUnit("Wh"))
	require.NoError(t, err)
	assert.InDelta(t, 0.04191, wh.Magnitude(), 1e-9)
	t.Logf("total over 1 h: %s = %s", total, wh)
}

func TestSubsystem_TotalIsSumOfStates(t *testing.T) {
	reg := quantity.NewRegistry()

	s, err := NewSubsystem(reg, validSubsystemConfig(), validCycles())
	require.NoError(t, err)

	for _, period := range []string{"1 h", "90 min", "2 d", "1 s"} {
		p := reg.MustParse(period)

		on, err := s.OnEnergyConsumption(p)
		require.NoError(t, err)
		stby, err := s.StandbyEnergyConsumption(p)
		require.NoError(t, err)
		sleep, err := s.SleepEnergyConsumption(p)
		require.NoError(t, err)
		total, err := s.TotalEnergyConsumption(p)
		require.NoError(t, err)

		sum := on.ToBase().Magnitude() + stby.ToBase().Magnitude() + sleep.ToBase().Magnitude()
		assert.InDelta(t, sum, total.ToBase().Magnitude(), 1e-9, period)
	}
}

func TestSubsystem_DefaultPeriodMatchesStored(t *testing.T) {
	reg := quantity.NewRegistry()

	s, err := NewSubsystem(reg, validSubsystemConfig(), validCycles())
	require.NoError(t, err)

	withDefault, err := s.TotalEnergyConsumption()
	require.NoError(t, err)
	withExplicit, err := s.TotalEnergyConsumption(reg.MustParse("1 h"))
	require.NoError(t, err)

	assert.InDelta(t, withExplicit.ToBase().Magnitude(), withDefault.ToBase().Magnitude(), 1e-12)
}

func TestSubsystem_PeriodOverrideMustBeTime(t *testing.T) {
	reg := quantity.NewRegistry()

	s, err := NewSubsystem(reg, validSubsystemConfig(), validCycles())
	require.NoError(t, err)

	_, err = s.TotalEnergyConsumption(reg.MustParse("3 V"))
	require.ErrorIs(t, err, quantity.ErrDimensionMismatch)
}

func TestSubsystem_ConstructionRejectsBareNumbers(t *testing.T) {
	reg := quantity.NewRegistry()

	cfg := validSubsystemConfig()
	cfg.Voltage = strp("3.3")

	_, err := NewSubsystem(reg, cfg, validCycles())
	require.ErrorIs(t, err, quantity.ErrNoUnits)
}

func TestSubsystem_ConstructionChecksDimensions(t *testing.T) {
	reg := quantity.NewRegistry()

	cfg := validSubsystemConfig()
	cfg.OnCurrent = strp("100 mV") // a voltage where a current belongs

	_, err := NewSubsystem(reg, cfg, validCycles())
	require.ErrorIs(t, err, quantity.ErrDimensionMismatch)
}

func TestSubsystem_MissingKeys(t *testing.T) {
	reg := quantity.NewRegistry()

	t.Run("config", func(t *testing.T) {
		cfg := validSubsystemConfig()
		cfg.SleepCurrent = nil

		_, err := NewSubsystem(reg, cfg, validCycles())
		require.ErrorIs(t, err, ErrMissingKey)

		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "sleep_current", cerr.Key)
	})

	t.Run("cycles", func(t *testing.T) {
		cycles := validCycles()
		cycles.TimePeriod = nil

		_, err := NewSubsystem(reg, validSubsystemConfig(), cycles)
		require.ErrorIs(t, err, ErrMissingKey)

		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, "time_period", cerr.Key)
	})
}

func TestSubsystem_SettersRevalidate(t *testing.T) {
	reg := quantity.NewRegistry()

	s, err := NewSubsystem(reg, validSubsystemConfig(), validCycles())
	require.NoError(t, err)

	require.NoError(t, s.SetVoltage("5 V"))
	assert.InDelta(t, 5, s.Voltage().Magnitude(), 1e-12)

	// bare number
	err = s.SetVoltage("5")
	require.ErrorIs(t, err, quantity.ErrNoUnits)
	assert.InDelta(t, 5, s.Voltage().Magnitude(), 1e-12, "failed set must not mutate")

	// wrong dimension
	err = s.SetOnCurrent("3.3 V")
	require.ErrorIs(t, err, quantity.ErrDimensionMismatch)
	assert.InDelta(t, 100, s.OnCurrent().Magnitude(), 1e-12)

	require.NoError(t, s.SetSleepCurrent("500 nA"))
	require.NoError(t, s.SetStandbyCurrent("5 mA"))
	require.NoError(t, s.SetTimePeriod("30 min"))
	assert.InDelta(t, 1800, s.TimePeriod().ToBase().Magnitude(), 1e-9)

	err = s.SetTimePeriod("30 mA")
	require.ErrorIs(t, err, quantity.ErrDimensionMismatch)
}

func TestSubsystem_DutyCycleMutatorsKeepConsistency(t *testing.T) {
	reg := quantity.NewRegistry()

	s, err := NewSubsystem(reg, validSubsystemConfig(), validCycles())
	require.NoError(t, err)

	require.NoError(t, s.SetOnDutyCycle(15))
	assert.InDelta(t, 0.15, s.OnDutyCycle(), 1e-12)
	assert.InDelta(t, 0.65, s.SleepDutyCycle(), 1e-12)

	require.NoError(t, s.SetStandbyDutyCycle(25))
	assert.InDelta(t, 0.25, s.StandbyDutyCycle(), 1e-12)
	assert.InDelta(t, 0.60, s.SleepDutyCycle(), 1e-12)

	// a rejected mutation must leave the whole triple untouched
	err = s.SetOnDutyCycle(80) // 80 + 25 >= 100
	require.ErrorIs(t, err, ErrDutyCycleSum)
	assert.InDelta(t, 0.15, s.OnDutyCycle(), 1e-12)
	assert.InDelta(t, 0.25, s.StandbyDutyCycle(), 1e-12)
	assert.InDelta(t, 0.60, s.SleepDutyCycle(), 1e-12)

	err = s.SetStandbyDutyCycle(-1)
	require.ErrorIs(t, err, ErrPercentRange)
	err = s.SetOnDutyCycle(101)
	require.ErrorIs(t, err, ErrPercentRange)
	assert.InDelta(t, 1.0, s.OnDutyCycle()+s.StandbyDutyCycle()+s.SleepDutyCycle(), 1e-12)
}

func TestSubsystem_String(t *testing.T) {
	reg := quantity.NewRegistry()

	s, err := NewSubsystem(reg, validSubsystemConfig(), validCycles())
	require.NoError(t, err)

	out := s.String()
	assert.Contains(t, out, "Module RF-101 from vendor Acme")
	assert.Contains(t, out, "Voltage: 3.3 V")
	assert.Contains(t, out, "Sleep duty cycle: 70%")
}
