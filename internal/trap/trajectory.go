// Package trap holds the core data types shared by the simulator, the
// data auditor and the spectral processor: the two-axis position
// trajectory and the validation errors raised on malformed input.
package trap

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter reports a non-physical configuration scalar
// (negative temperature, zero timestep, and so on).
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrInvalidTrajectory reports a trajectory that cannot be analysed:
// wrong length, mismatched axes or non-finite samples.
var ErrInvalidTrajectory = errors.New("invalid trajectory")

// Trajectory is an ordered sequence of particle positions per axis,
// sampled at a uniform interval Dt. Positions are in meters (or volts
// for uncalibrated sensor data, as long as the caller is consistent).
// A Trajectory is read-only once produced.
type Trajectory struct {
	X  []float64
	Y  []float64
	Dt float64
}

// Len returns the number of samples per axis.
func (t *Trajectory) Len() int {
	return len(t.X)
}

// Duration returns the total elapsed time covered by the trajectory.
func (t *Trajectory) Duration() float64 {
	return float64(len(t.X)) * t.Dt
}

// SampleRate returns the sampling frequency in Hz.
func (t *Trajectory) SampleRate() float64 {
	return 1 / t.Dt
}

// Validate checks the structural invariants every consumer relies on:
// both axes present with equal length, at least two samples, positive
// timestep and finite values throughout.
func (t *Trajectory) Validate() error {
	if t.Dt <= 0 {
		return fmt.Errorf("%w: timestep %g must be positive", ErrInvalidTrajectory, t.Dt)
	}
	if len(t.X) != len(t.Y) {
		return fmt.Errorf("%w: axis lengths differ (x=%d, y=%d)", ErrInvalidTrajectory, len(t.X), len(t.Y))
	}
	if len(t.X) < 2 {
		return fmt.Errorf("%w: need at least 2 samples, got %d", ErrInvalidTrajectory, len(t.X))
	}
	for i := range t.X {
		if !isFinite(t.X[i]) || !isFinite(t.Y[i]) {
			return fmt.Errorf("%w: non-finite sample at index %d", ErrInvalidTrajectory, i)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
