package spectral

import (
	"fmt"
	"math"

	"github.com/Schronding/pinzas-opticas/internal/physics"
	"github.com/Schronding/pinzas-opticas/internal/trap"
)

// MinSamples is the shortest trajectory accepted for analysis; anything
// less cannot support a meaningful spectral estimate.
const MinSamples = 64

// Options tunes the analysis pipeline. The zero value selects the
// defaults: 1024-sample Welch segments and a 10–5000 Hz fit band.
type Options struct {
	SegmentLength int
	FitBandLow    float64 // Hz
	FitBandHigh   float64 // Hz
}

func (o Options) withDefaults(fs float64) Options {
	if o.SegmentLength <= 0 {
		o.SegmentLength = DefaultSegmentLength
	}
	if o.FitBandLow <= 0 {
		o.FitBandLow = 10
	}
	if o.FitBandHigh <= 0 {
		o.FitBandHigh = math.Min(5000, fs/2)
	}
	return o
}

// AxisResult carries the spectral calibration of one axis: the PSD the
// fit consumed, the Lorentzian fit itself and the derived stiffness
// k = 2π·γ·fc. Stiffness is NaN when the fit did not converge.
type AxisResult struct {
	PSD       *PSD
	Fit       *LorentzianFit
	Stiffness float64 // N/m
}

// Result is the terminal artifact of one analysis call: per-axis corner
// frequencies and stiffnesses plus fit quality. It is immutable; the
// caller owns it.
type Result struct {
	X, Y AxisResult
}

// Converged reports whether both axis fits converged.
func (r *Result) Converged() bool {
	return r.X.Fit.Converged && r.Y.Fit.Converged
}

// Analyze runs the full calibration pipeline on a trajectory: Welch
// PSD per axis, Lorentzian fit over the configured band with the f=0
// bin excluded, then stiffness from the corner frequency. Calling it
// twice with identical inputs yields identical results; there is no
// hidden state.
func Analyze(tr *trap.Trajectory, p physics.Params, opts Options) (*Result, error) {
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	if tr.Len() < MinSamples {
		return nil, fmt.Errorf("analyze: %w: %d samples, need at least %d", trap.ErrInvalidTrajectory, tr.Len(), MinSamples)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	fs := tr.SampleRate()
	opts = opts.withDefaults(fs)

	var res Result
	for _, ax := range []struct {
		signal []float64
		out    *AxisResult
	}{
		{tr.X, &res.X},
		{tr.Y, &res.Y},
	} {
		psd, err := Welch(ax.signal, fs, opts.SegmentLength)
		if err != nil {
			return nil, fmt.Errorf("analyze: %w", err)
		}
		freq, power := psd.Band(opts.FitBandLow, opts.FitBandHigh)
		fit, err := FitLorentzian(freq, power)
		if err != nil {
			return nil, fmt.Errorf("analyze: %w", err)
		}
		ax.out.PSD = psd
		ax.out.Fit = fit
		if fit.Converged {
			ax.out.Stiffness = Stiffness(fit.CornerFreq, p.Gamma)
		} else {
			// A fabricated stiffness from a failed fit is worse than
			// none; callers must check Converged.
			ax.out.Stiffness = math.NaN()
		}
	}
	return &res, nil
}

// Stiffness converts a corner frequency to trap stiffness, k = 2π·γ·fc.
func Stiffness(cornerFreq, gamma float64) float64 {
	return 2 * math.Pi * gamma * cornerFreq
}
