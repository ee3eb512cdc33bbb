package voltage

import (
	"errors"
	"fmt"
)

// CurrentModel selects how per-segment current is derived. There is no
// hidden default: a Config with an empty model fails validation.
type CurrentModel string

const (
	// CurrentFlat carries a constant current on every segment
	CurrentFlat CurrentModel = "flat"
	// CurrentAccumulated derives each segment's current from the
	// customer count of everything downstream of it
	CurrentAccumulated CurrentModel = "accumulated"
)

// Config controls voltage-drop analysis
type Config struct {
	// SourceVoltage is V0 at the source node, in volts
	SourceVoltage float64 `yaml:"source_voltage"`
	// PowerFactor is cos(phi) for the connected load
	PowerFactor float64 `yaml:"power_factor"`
	// ThresholdPercent flags nodes whose cumulative drop strictly
	// exceeds it
	ThresholdPercent float64 `yaml:"threshold_percent"`
	// CurrentModel is the explicit choice between flat and
	// customer-accumulated segment current
	CurrentModel CurrentModel `yaml:"current_model"`
	// FlatCurrentAmps is the per-segment current under CurrentFlat
	FlatCurrentAmps float64 `yaml:"flat_current_amps"`
	// LoadPerCustomerKW converts downstream customer counts into load
	// under CurrentAccumulated
	LoadPerCustomerKW float64 `yaml:"load_per_customer_kw"`
	// DefaultSpecID substitutes for unknown conductor spec ids; every
	// substitution is logged and reported as a warning
	DefaultSpecID string `yaml:"default_spec_id"`
	// DefaultThreePhase applies the sqrt(3) factor to segments whose
	// voltage class is untagged. MV-tagged segments are always
	// three-phase; LV-tagged segments never are.
	DefaultThreePhase bool `yaml:"default_three_phase"`
}

// DefaultConfig returns the standard 11kV three-phase analysis
// configuration with a flat 10A segment current.
func DefaultConfig() Config {
	return Config{
		SourceVoltage:     11000,
		PowerFactor:       0.85,
		ThresholdPercent:  7.0,
		CurrentModel:      CurrentFlat,
		FlatCurrentAmps:   10,
		LoadPerCustomerKW: 2.0,
		DefaultSpecID:     "AAC_35",
		DefaultThreePhase: true,
	}
}

// Validate checks the configuration, collecting every problem
func (c Config) Validate() error {
	var errs []error
	if c.SourceVoltage <= 0 {
		errs = append(errs, fmt.Errorf("source_voltage must be positive, got %v", c.SourceVoltage))
	}
	if c.PowerFactor <= 0 || c.PowerFactor > 1 {
		errs = append(errs, fmt.Errorf("power_factor must be in (0, 1], got %v", c.PowerFactor))
	}
	if c.ThresholdPercent < 0 {
		errs = append(errs, fmt.Errorf("threshold_percent must be non-negative, got %v", c.ThresholdPercent))
	}
	switch c.CurrentModel {
	case CurrentFlat:
		if c.FlatCurrentAmps <= 0 {
			errs = append(errs, fmt.Errorf("flat_current_amps must be positive, got %v", c.FlatCurrentAmps))
		}
	case CurrentAccumulated:
		if c.LoadPerCustomerKW <= 0 {
			errs = append(errs, fmt.Errorf("load_per_customer_kw must be positive, got %v", c.LoadPerCustomerKW))
		}
	case "":
		errs = append(errs, errors.New("current_model must be set explicitly (flat or accumulated)"))
	default:
		errs = append(errs, fmt.Errorf("unknown current_model %q", c.CurrentModel))
	}
	if c.DefaultSpecID == "" {
		errs = append(errs, errors.New("default_spec_id is required"))
	}
	return errors.Join(errs...)
}
