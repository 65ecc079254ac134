// Package spectral converts a position trajectory into a one-sided
// power spectral density and fits a Lorentzian to it, recovering the
// trap's corner frequency and stiffness. The PSD estimator and the fit
// are separable stages so alternative spectral estimators can be
// swapped in without touching the fitting logic.
package spectral

import (
	"fmt"
	"math"

	"github.com/Schronding/pinzas-opticas/internal/trap"
	"gonum.org/v1/gonum/dsp/fourier"
)

// DefaultSegmentLength is the Welch segment size used when the caller
// does not configure one.
const DefaultSegmentLength = 1024

// PSD holds a one-sided power spectral density estimate: Power[i] is
// the density at Freq[i], in signal-units²/Hz.
type PSD struct {
	Freq  []float64
	Power []float64
}

// Welch estimates the one-sided PSD of signal x sampled at fs Hz using
// the segmented-averaging periodogram: Hann-windowed segments of
// segLen samples with 50% overlap, mean-detrended per segment. When the
// signal is shorter than segLen the whole signal becomes one segment.
func Welch(x []float64, fs float64, segLen int) (*PSD, error) {
	if len(x) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 samples for a spectral estimate, got %d", trap.ErrInvalidTrajectory, len(x))
	}
	if fs <= 0 {
		return nil, fmt.Errorf("%w: sample rate %g must be positive", trap.ErrInvalidTrajectory, fs)
	}
	if segLen <= 0 {
		segLen = DefaultSegmentLength
	}
	if segLen > len(x) {
		segLen = len(x)
	}

	window := hann(segLen)
	var windowPower float64 // Σ w²
	for _, w := range window {
		windowPower += w * w
	}

	nBins := segLen/2 + 1
	fft := fourier.NewFFT(segLen)
	psd := make([]float64, nBins)
	buf := make([]float64, segLen)

	step := segLen / 2 // 50% overlap
	if step == 0 {
		step = 1
	}
	segments := 0
	for start := 0; start+segLen <= len(x); start += step {
		seg := x[start : start+segLen]

		var mean float64
		for _, v := range seg {
			mean += v
		}
		mean /= float64(segLen)
		for i, v := range seg {
			buf[i] = (v - mean) * window[i]
		}

		coeffs := fft.Coefficients(nil, buf)
		for i, c := range coeffs {
			p := real(c)*real(c) + imag(c)*imag(c)
			// One-sided density: double everything except DC and
			// (for even segment lengths) the Nyquist bin.
			if i != 0 && !(segLen%2 == 0 && i == nBins-1) {
				p *= 2
			}
			psd[i] += p / (fs * windowPower)
		}
		segments++
	}
	if segments == 0 {
		return nil, fmt.Errorf("%w: no complete segments of length %d in %d samples", trap.ErrInvalidTrajectory, segLen, len(x))
	}

	out := &PSD{
		Freq:  make([]float64, nBins),
		Power: make([]float64, nBins),
	}
	df := fs / float64(segLen)
	for i := 0; i < nBins; i++ {
		out.Freq[i] = float64(i) * df
		out.Power[i] = psd[i] / float64(segments)
	}
	return out, nil
}

// Band returns the subset of the PSD with lo < f < hi. The f=0 bin is
// always excluded: the DC offset carries no information about the trap.
func (p *PSD) Band(lo, hi float64) (freq, power []float64) {
	for i, f := range p.Freq {
		if f <= 0 || f <= lo || f >= hi {
			continue
		}
		freq = append(freq, f)
		power = append(power, p.Power[i])
	}
	return freq, power
}

func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
