// Package physics defines the immutable physical parameter set consumed
// by the simulator and the spectral processor, together with the
// constants and derived quantities (Stokes drag, relaxation time) the
// rest of the system needs.
package physics

import (
	"fmt"
	"math"

	"github.com/Schronding/pinzas-opticas/internal/trap"
)

// Boltzmann is the Boltzmann constant in J/K (2019 SI exact value).
const Boltzmann = 1.380649e-23

// Defaults matching the reference experimental setup: a 2.5 µm silica
// bead in water at room temperature.
const (
	DefaultTemperature = 300.0        // K
	DefaultViscosity   = 0.89e-3      // Pa·s, water at ~25 °C
	DefaultBeadRadius  = 1.25e-6      // m
	DefaultKappaX      = 52.707762e-9 // N/m
	DefaultKappaY      = 74.882902e-9 // N/m
	DefaultDt          = 1e-5         // s
	DefaultSteps       = 200000
)

// Params is the immutable configuration bundle for one simulation or
// analysis run. Construct it once, validate it, and treat it as
// read-only: instances may be shared across concurrent analyses.
type Params struct {
	Temperature float64 // K
	Gamma       float64 // drag coefficient, kg/s
	KappaX      float64 // trap stiffness along x, N/m
	KappaY      float64 // trap stiffness along y, N/m
	Dt          float64 // integration timestep, s
	Steps       int     // number of samples to generate
}

// StokesDrag returns the viscous drag coefficient 6·π·η·R for a sphere
// of radius r (m) in a fluid of dynamic viscosity eta (Pa·s).
func StokesDrag(r, eta float64) float64 {
	return 6 * math.Pi * eta * r
}

// DefaultParams returns the reference bead-in-water parameter set.
func DefaultParams() Params {
	return Params{
		Temperature: DefaultTemperature,
		Gamma:       StokesDrag(DefaultBeadRadius, DefaultViscosity),
		KappaX:      DefaultKappaX,
		KappaY:      DefaultKappaY,
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
	}
}

// Validate checks that every scalar is physical. Stiffness may be zero
// (free diffusion); everything else must be strictly positive and
// finite. It also rejects timesteps large enough to destabilise the
// Euler–Maruyama scheme (see StabilityRatio).
func (p Params) Validate() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", trap.ErrInvalidParameter, name)
		}
		return nil
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"temperature", p.Temperature},
		{"gamma", p.Gamma},
		{"kappa_x", p.KappaX},
		{"kappa_y", p.KappaY},
		{"dt", p.Dt},
	} {
		if err := check(f.name, f.v); err != nil {
			return err
		}
	}
	if p.Temperature < 0 {
		return fmt.Errorf("%w: temperature %g K is negative", trap.ErrInvalidParameter, p.Temperature)
	}
	if p.Gamma <= 0 {
		return fmt.Errorf("%w: drag coefficient %g must be positive", trap.ErrInvalidParameter, p.Gamma)
	}
	if p.KappaX < 0 || p.KappaY < 0 {
		return fmt.Errorf("%w: trap stiffness (%g, %g) must be non-negative", trap.ErrInvalidParameter, p.KappaX, p.KappaY)
	}
	if p.Dt <= 0 {
		return fmt.Errorf("%w: timestep %g must be positive", trap.ErrInvalidParameter, p.Dt)
	}
	if p.Steps < 1 {
		return fmt.Errorf("%w: step count %d must be at least 1", trap.ErrInvalidParameter, p.Steps)
	}
	if r := p.StabilityRatio(); r >= 1 {
		return fmt.Errorf("%w: dt/relaxation-time ratio %.3g >= 1, Euler–Maruyama would diverge (reduce dt below gamma/kappa)", trap.ErrInvalidParameter, r)
	}
	return nil
}

// StabilityRatio returns Δt·κ/γ for the stiffer axis, the ratio of the
// timestep to the trap relaxation time. The explicit integrator is
// stable only for ratios well below 1; Validate rejects ratios >= 1.
func (p Params) StabilityRatio() float64 {
	kappa := math.Max(p.KappaX, p.KappaY)
	if kappa == 0 {
		return 0
	}
	return p.Dt * kappa / p.Gamma
}

// RelaxationTime returns γ/κ for the given axis stiffness, the
// characteristic time over which the trapped bead forgets its position.
func (p Params) RelaxationTime(kappa float64) float64 {
	if kappa == 0 {
		return math.Inf(1)
	}
	return p.Gamma / kappa
}

// CornerFrequency returns the theoretical Lorentzian corner frequency
// κ/(2π·γ) for the given axis stiffness, in Hz.
func (p Params) CornerFrequency(kappa float64) float64 {
	return kappa / (2 * math.Pi * p.Gamma)
}

// ThermalVariance returns the equipartition position variance kB·T/κ
// expected in the stationary state, in m².
func (p Params) ThermalVariance(kappa float64) float64 {
	if kappa == 0 {
		return math.Inf(1)
	}
	return Boltzmann * p.Temperature / kappa
}

// DiffusionCoefficient returns kB·T/γ, in m²/s.
func (p Params) DiffusionCoefficient() float64 {
	return Boltzmann * p.Temperature / p.Gamma
}
