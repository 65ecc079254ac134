package physics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical trap defaults file.
// This is the single source of truth for all default physical values.
const DefaultConfigPath = "config/trap.defaults.json"

// TrapConfig is the JSON-file representation of a parameter set. All
// fields are optional pointers so a partial config file overrides only
// the values it names; the Get* methods supply defaults for the rest.
type TrapConfig struct {
	Temperature *float64 `json:"temperature_k,omitempty"`
	Viscosity   *float64 `json:"viscosity_pa_s,omitempty"`
	BeadRadius  *float64 `json:"bead_radius_m,omitempty"`
	Gamma       *float64 `json:"gamma_kg_s,omitempty"` // overrides Stokes drag when set
	KappaX      *float64 `json:"kappa_x_n_m,omitempty"`
	KappaY      *float64 `json:"kappa_y_n_m,omitempty"`
	Dt          *float64 `json:"dt_s,omitempty"`
	Steps       *int     `json:"steps,omitempty"`

	// Analysis params
	CorrelationThreshold *float64 `json:"correlation_threshold,omitempty"`
	SegmentLength        *int     `json:"psd_segment_length,omitempty"`
	FitBandLowHz         *float64 `json:"fit_band_low_hz,omitempty"`
	FitBandHighHz        *float64 `json:"fit_band_high_hz,omitempty"`
}

// EmptyTrapConfig returns a TrapConfig with all fields set to nil.
// Use LoadTrapConfig to load actual values from the defaults file.
func EmptyTrapConfig() *TrapConfig {
	return &TrapConfig{}
}

// LoadTrapConfig loads a TrapConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields
// omitted from the JSON retain their default values, so partial
// configs are safe.
func LoadTrapConfig(path string) (*TrapConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrapConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Params().Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical trap defaults from
// DefaultConfigPath. It searches the current directory and common
// parent directories. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *TrapConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/physics/
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTrapConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Params assembles a validated-ready Params value from the config,
// filling gaps with the reference defaults. Gamma, when not given
// directly, is derived from bead radius and viscosity via Stokes drag.
func (c *TrapConfig) Params() Params {
	p := DefaultParams()
	if c.Temperature != nil {
		p.Temperature = *c.Temperature
	}
	if c.Gamma != nil {
		p.Gamma = *c.Gamma
	} else if c.BeadRadius != nil || c.Viscosity != nil {
		r := DefaultBeadRadius
		eta := DefaultViscosity
		if c.BeadRadius != nil {
			r = *c.BeadRadius
		}
		if c.Viscosity != nil {
			eta = *c.Viscosity
		}
		p.Gamma = StokesDrag(r, eta)
	}
	if c.KappaX != nil {
		p.KappaX = *c.KappaX
	}
	if c.KappaY != nil {
		p.KappaY = *c.KappaY
	}
	if c.Dt != nil {
		p.Dt = *c.Dt
	}
	if c.Steps != nil {
		p.Steps = *c.Steps
	}
	return p
}

// GetCorrelationThreshold returns the auditor threshold or the default.
func (c *TrapConfig) GetCorrelationThreshold() float64 {
	if c.CorrelationThreshold == nil {
		return 0.3
	}
	return *c.CorrelationThreshold
}

// GetSegmentLength returns the Welch segment length or the default.
func (c *TrapConfig) GetSegmentLength() int {
	if c.SegmentLength == nil {
		return 1024
	}
	return *c.SegmentLength
}

// GetFitBandLow returns the lower fit-band edge in Hz or the default.
func (c *TrapConfig) GetFitBandLow() float64 {
	if c.FitBandLowHz == nil {
		return 10
	}
	return *c.FitBandLowHz
}

// GetFitBandHigh returns the upper fit-band edge in Hz or the default.
func (c *TrapConfig) GetFitBandHigh() float64 {
	if c.FitBandHighHz == nil {
		return 5000
	}
	return *c.FitBandHighHz
}
