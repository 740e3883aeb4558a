package power

import "errors"

var (
	// ErrMissingKey indicates a required configuration key was absent.
	// It always travels inside a *ConfigError naming the offending file.
	ErrMissingKey = errors.New("power: required key missing")

	// ErrDutyCycleSum indicates the on/standby/sleep duty cycles cannot
	// partition the period: on + standby leaves no positive sleep remainder.
	ErrDutyCycleSum = errors.New("power: duty cycles must sum to 100%")

	// ErrPercentRange indicates a percentage outside [0, 100].
	ErrPercentRange = errors.New("power: percentage out of range")

	// ErrNotANumber indicates a numeric field (derating, design margin,
	// duty cycle) was given non-numeric input.
	ErrNotANumber = errors.New("power: value is not a number")
)
