package spectral

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// LorentzianFit is the outcome of a nonlinear least-squares fit of
//
//	S(f) = S0 / (1 + (f/fc)²) + floor
//
// to a (frequency, power) spectrum. Non-convergence is a legitimate
// experimental outcome: it is reported in Converged, not as an error.
type LorentzianFit struct {
	CornerFreq float64 // fc, Hz
	Plateau    float64 // S0, low-frequency density
	NoiseFloor float64 // additive white-noise density
	RSS        float64 // residual sum of squares
	RSquared   float64
	Converged  bool
	FuncEvals  int
}

// Lorentzian evaluates the fitted model at frequency f.
func (l *LorentzianFit) Lorentzian(f float64) float64 {
	r := f / l.CornerFreq
	return l.Plateau/(1+r*r) + l.NoiseFloor
}

// Diffusion returns the diffusion-style amplitude D = π²·fc²·S0 of the
// equivalent parameterization S(f) = D/(π²·(fc²+f²)), in
// signal-units²·Hz.
func (l *LorentzianFit) Diffusion() float64 {
	return math.Pi * math.Pi * l.CornerFreq * l.CornerFreq * l.Plateau
}

// fitIterationBudget bounds the simplex search; spectra that have not
// settled by then are reported as non-converged.
const fitIterationBudget = 4000

// FitLorentzian solves for fc, S0 and the noise floor by minimising
// the residual sum of squares over the supplied band. All three
// parameters are constrained positive by optimising their logarithms.
// Initial guesses: S0 from the low-frequency plateau, fc from the
// half-maximum crossing, floor from the high-frequency tail.
func FitLorentzian(freq, power []float64) (*LorentzianFit, error) {
	if len(freq) != len(power) {
		return nil, fmt.Errorf("frequency/power length mismatch: %d vs %d", len(freq), len(power))
	}
	if len(freq) < 8 {
		return nil, fmt.Errorf("need at least 8 spectral points to fit, got %d", len(freq))
	}
	for i, f := range freq {
		if f <= 0 {
			return nil, fmt.Errorf("non-positive frequency %g at index %d (exclude the DC bin before fitting)", f, i)
		}
		if power[i] < 0 || math.IsNaN(power[i]) || math.IsInf(power[i], 0) {
			return nil, fmt.Errorf("invalid power %g at index %d", power[i], i)
		}
	}

	s0Guess, fcGuess, floorGuess := initialGuess(freq, power)

	rss := func(fc, s0, floor float64) float64 {
		var sum float64
		for i, f := range freq {
			r := f / fc
			resid := power[i] - (s0/(1+r*r) + floor)
			sum += resid * resid
		}
		return sum
	}

	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			return rss(math.Exp(u[0]), math.Exp(u[1]), math.Exp(u[2]))
		},
	}
	u0 := []float64{math.Log(fcGuess), math.Log(s0Guess), math.Log(floorGuess)}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   0,
			Relative:   1e-10,
			Iterations: 100,
		},
		MajorIterations: fitIterationBudget,
	}

	result, err := optimize.Minimize(problem, u0, settings, &optimize.NelderMead{})
	fit := &LorentzianFit{}
	if result != nil {
		fit.CornerFreq = math.Exp(result.X[0])
		fit.Plateau = math.Exp(result.X[1])
		fit.NoiseFloor = math.Exp(result.X[2])
		fit.RSS = result.F
		fit.FuncEvals = result.Stats.FuncEvaluations
		fit.Converged = err == nil && converged(result.Status) && isFiniteFit(fit)
	}
	if result == nil {
		return nil, fmt.Errorf("optimizer produced no result: %w", err)
	}

	var mean, tss float64
	for _, p := range power {
		mean += p
	}
	mean /= float64(len(power))
	for _, p := range power {
		tss += (p - mean) * (p - mean)
	}
	if tss > 0 {
		fit.RSquared = 1 - fit.RSS/tss
	}
	return fit, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.MethodConverge,
		optimize.StepConvergence, optimize.FunctionThreshold, optimize.GradientThreshold:
		return true
	}
	return false
}

func isFiniteFit(f *LorentzianFit) bool {
	for _, v := range []float64{f.CornerFreq, f.Plateau, f.NoiseFloor, f.RSS} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// initialGuess seeds the optimizer. The plateau is the mean of the
// lowest-frequency decade of the band, the floor the mean of the
// highest, and fc the first frequency where power drops below half the
// plateau (default 100 Hz if the spectrum never crosses it).
func initialGuess(freq, power []float64) (s0, fc, floor float64) {
	head := len(freq) / 10
	if head < 2 {
		head = 2
	}
	for i := 0; i < head; i++ {
		s0 += power[i]
	}
	s0 /= float64(head)

	tail := len(freq) / 10
	if tail < 2 {
		tail = 2
	}
	for i := len(freq) - tail; i < len(freq); i++ {
		floor += power[i]
	}
	floor /= float64(tail)

	fc = 100 // fallback seed
	for i, p := range power {
		if p < s0/2 {
			fc = freq[i]
			break
		}
	}

	// Keep the log transform finite.
	const tiny = 1e-30
	if s0 <= 0 {
		s0 = tiny
	}
	if floor <= 0 || floor >= s0 {
		floor = s0 * 1e-6
	}
	if fc <= 0 {
		fc = 100
	}
	return s0, fc, floor
}
