// Package sim integrates the overdamped Langevin equation of motion for
// a bead in an optical trap with the Euler–Maruyama scheme, producing
// synthetic position trajectories. Both axes are integrated with
// statistically independent noise draws; that independence is the
// invariant the data auditor checks real sensor traces against.
package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Schronding/pinzas-opticas/internal/physics"
	"github.com/Schronding/pinzas-opticas/internal/trap"
)

// ForceField supplies the deterministic trap force at a position. The
// harmonic restoring force is the default; a precomputed force map from
// offline Mie/T-matrix tooling can be substituted for anharmonic traps.
type ForceField interface {
	// Force returns (Fx, Fy) in newtons at position (x, y) in meters.
	Force(x, y float64) (fx, fy float64)
}

// HarmonicForce is the linear restoring force F = -κ·r of an ideal trap.
type HarmonicForce struct {
	KappaX float64
	KappaY float64
}

// Force implements ForceField.
func (h HarmonicForce) Force(x, y float64) (float64, float64) {
	return -h.KappaX * x, -h.KappaY * y
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the noise source. Passing a seeded *rand.Rand makes the
// run reproducible; tests rely on this.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithSeed is shorthand for WithRand(rand.New(rand.NewSource(seed))).
func WithSeed(seed int64) Option {
	return func(s *Simulator) { s.rng = rand.New(rand.NewSource(seed)) }
}

// WithForceField replaces the harmonic restoring force with an
// arbitrary field, typically an interpolated force map.
func WithForceField(f ForceField) Option {
	return func(s *Simulator) { s.force = f }
}

// WithInitialPosition starts the bead away from the trap equilibrium.
func WithInitialPosition(x, y float64) Option {
	return func(s *Simulator) { s.x0, s.y0 = x, y }
}

// Simulator advances a bead through the discretised Langevin dynamics
//
//	x[n+1] = x[n] + (F(x[n])/γ)·Δt + sqrt(2·kB·T·Δt/γ)·ξ[n]
//
// one timestep at a time. It is restartable: a host render loop can
// interleave Step calls with frame drawing, and Reset rewinds to the
// initial state. Not safe for concurrent use; create one per goroutine.
type Simulator struct {
	params physics.Params
	force  ForceField
	rng    *rand.Rand

	noiseMag float64 // sqrt(2·kB·T·Δt/γ), precomputed
	x0, y0   float64

	x, y float64
	n    int
}

// New validates the parameter set and builds a Simulator. Without an
// explicit WithRand/WithSeed option the noise source is seeded with 1,
// so two default simulators produce identical runs.
func New(p physics.Params, opts ...Option) (*Simulator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		params: p,
		force:  HarmonicForce{KappaX: p.KappaX, KappaY: p.KappaY},
		rng:    rand.New(rand.NewSource(1)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.noiseMag = math.Sqrt(2 * p.DiffusionCoefficient() * p.Dt)
	s.x, s.y = s.x0, s.y0
	return s, nil
}

// Position returns the current bead position in meters.
func (s *Simulator) Position() (x, y float64) {
	return s.x, s.y
}

// StepCount returns the number of steps taken since the last Reset.
func (s *Simulator) StepCount() int {
	return s.n
}

// Step advances the dynamics by one timestep and returns the new
// position. Each axis draws its own standard-normal variate.
func (s *Simulator) Step() (x, y float64) {
	fx, fy := s.force.Force(s.x, s.y)
	s.x += fx/s.params.Gamma*s.params.Dt + s.noiseMag*s.rng.NormFloat64()
	s.y += fy/s.params.Gamma*s.params.Dt + s.noiseMag*s.rng.NormFloat64()
	s.n++
	return s.x, s.y
}

// Reset rewinds the simulator to the initial position and step zero.
// The noise source is not rewound; reseed via WithSeed on a fresh
// Simulator for an identical replay.
func (s *Simulator) Reset() {
	s.x, s.y = s.x0, s.y0
	s.n = 0
}

// Run integrates the configured number of steps in one call and
// returns the full trajectory, with the initial position as sample 0.
func (s *Simulator) Run() (*trap.Trajectory, error) {
	n := s.params.Steps
	tr := &trap.Trajectory{
		X:  make([]float64, n),
		Y:  make([]float64, n),
		Dt: s.params.Dt,
	}
	s.Reset()
	tr.X[0], tr.Y[0] = s.x, s.y
	for i := 1; i < n; i++ {
		tr.X[i], tr.Y[i] = s.Step()
	}
	return tr, nil
}

// Simulate is the bulk convenience entry point: validate, integrate,
// return the trajectory. Offline analysis callers use this; real-time
// consumers construct a Simulator and drive Step themselves.
func Simulate(p physics.Params, seed int64) (*trap.Trajectory, error) {
	s, err := New(p, WithSeed(seed))
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	return s.Run()
}
