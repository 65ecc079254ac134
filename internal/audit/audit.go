// Package audit screens position trajectories for axis-coupling
// anomalies before they are trusted as calibration input. A healthy
// two-axis sensor trace of Brownian motion shows near-zero correlation
// between x and y; strong correlation means cross-talk, astigmatism or
// an outright duplicated channel.
package audit

import (
	"fmt"
	"math"

	"github.com/Schronding/pinzas-opticas/internal/trap"
	"gonum.org/v1/gonum/stat"
)

// DefaultThreshold is the correlation magnitude above which an audit
// fails. Physically independent axes sit well below it.
const DefaultThreshold = 0.3

// StrongCouplingLevel marks correlations so high the two channels
// almost certainly carry the same physical signal.
const StrongCouplingLevel = 0.95

// SameSignalMeanDiff is the mean absolute point difference (in the
// trajectory's own units) below which two channels are numerically the
// same series up to machine error.
const SameSignalMeanDiff = 1e-9

// Condition names one specific way an audit can be violated.
type Condition string

const (
	// CondCorrelationExceeded: |ρ| above the configured threshold.
	CondCorrelationExceeded Condition = "correlation_exceeded"
	// CondStrongCoupling: |ρ| above StrongCouplingLevel, the channels
	// carry practically identical physical information.
	CondStrongCoupling Condition = "strong_coupling"
	// CondSameSignal: per-point |x-y| is negligible, one channel is a
	// copy of the other.
	CondSameSignal Condition = "same_signal"
	// CondDegenerateX / CondDegenerateY: an axis has zero variance, so
	// no correlation is defined for it.
	CondDegenerateX Condition = "degenerate_x"
	CondDegenerateY Condition = "degenerate_y"
)

// Report is the immutable result of one audit call. Verdict and
// diagnostics are returned as data, never raised: a failed audit is an
// advisory outcome the caller decides how to act on.
type Report struct {
	// Covariance is the 2x2 sample covariance matrix of (x, y),
	// row-major: [0][0]=Var(x), [0][1]=[1][0]=Cov(x,y), [1][1]=Var(y).
	Covariance [2][2]float64
	// Correlation is the Pearson coefficient ρ = Cov(x,y)/(σx·σy).
	// NaN when either axis is degenerate.
	Correlation float64
	// Threshold the verdict was judged against.
	Threshold float64
	// Pass is true when no condition was violated.
	Pass bool
	// Violations lists every violated condition, empty when Pass.
	Violations []Condition

	// MeanAbsDiff and MaxAbsDiff summarise the per-point |x-y|
	// difference, the duplicate-channel screen.
	MeanAbsDiff float64
	MaxAbsDiff  float64
}

// Violated reports whether the given condition appears in the report.
func (r *Report) Violated(c Condition) bool {
	for _, v := range r.Violations {
		if v == c {
			return true
		}
	}
	return false
}

// Audit computes the covariance matrix and Pearson correlation of the
// trajectory's axes and judges them against the threshold. It is a
// pure function of its input: no mutation, no I/O. A threshold <= 0
// selects DefaultThreshold.
func Audit(tr *trap.Trajectory, threshold float64) (*Report, error) {
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	varX := stat.Variance(tr.X, nil)
	varY := stat.Variance(tr.Y, nil)
	cov := stat.Covariance(tr.X, tr.Y, nil)

	r := &Report{
		Covariance: [2][2]float64{{varX, cov}, {cov, varY}},
		Threshold:  threshold,
	}

	var sumDiff, maxDiff float64
	for i := range tr.X {
		d := math.Abs(tr.X[i] - tr.Y[i])
		sumDiff += d
		if d > maxDiff {
			maxDiff = d
		}
	}
	r.MeanAbsDiff = sumDiff / float64(len(tr.X))
	r.MaxAbsDiff = maxDiff

	if varX == 0 {
		r.Violations = append(r.Violations, CondDegenerateX)
	}
	if varY == 0 {
		r.Violations = append(r.Violations, CondDegenerateY)
	}
	if varX == 0 || varY == 0 {
		// Correlation undefined; report NaN explicitly rather than
		// letting it leak out of a division.
		r.Correlation = math.NaN()
		r.Pass = false
		return r, nil
	}

	r.Correlation = stat.Correlation(tr.X, tr.Y, nil)
	if math.Abs(r.Correlation) > threshold {
		r.Violations = append(r.Violations, CondCorrelationExceeded)
	}
	if math.Abs(r.Correlation) > StrongCouplingLevel {
		r.Violations = append(r.Violations, CondStrongCoupling)
	}
	if r.MeanAbsDiff < SameSignalMeanDiff {
		r.Violations = append(r.Violations, CondSameSignal)
	}

	r.Pass = len(r.Violations) == 0
	return r, nil
}
