package spectral

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticSpectrum(fc, s0, floor float64, n int) (freq, power []float64) {
	freq = make([]float64, n)
	power = make([]float64, n)
	lo, hi := 10.0, 5000.0
	for i := 0; i < n; i++ {
		f := lo * math.Pow(hi/lo, float64(i)/float64(n-1))
		r := f / fc
		freq[i] = f
		power[i] = s0/(1+r*r) + floor
	}
	return freq, power
}

func TestFitLorentzianRecoversKnownSpectrum(t *testing.T) {
	const (
		fc    = 120.0
		s0    = 1e-3
		floor = 1e-8
	)
	freq, power := syntheticSpectrum(fc, s0, floor, 400)

	fit, err := FitLorentzian(freq, power)
	require.NoError(t, err)
	require.True(t, fit.Converged, "noise-free synthetic spectrum must converge")

	assert.InEpsilon(t, fc, fit.CornerFreq, 0.02)
	assert.InEpsilon(t, s0, fit.Plateau, 0.05)
	assert.Greater(t, fit.RSquared, 0.999)
}

func TestFitLorentzianWithNoise(t *testing.T) {
	const (
		fc    = 80.0
		s0    = 2e-4
		floor = 1e-9
	)
	freq, power := syntheticSpectrum(fc, s0, floor, 500)
	rng := rand.New(rand.NewSource(21))
	for i := range power {
		// Multiplicative noise, as a periodogram estimate would show.
		power[i] *= 1 + 0.05*rng.NormFloat64()
		if power[i] < 0 {
			power[i] = 0
		}
	}

	fit, err := FitLorentzian(freq, power)
	require.NoError(t, err)
	require.True(t, fit.Converged)
	assert.InEpsilon(t, fc, fit.CornerFreq, 0.10)
}

func TestFitLorentzianDiffusionParameterization(t *testing.T) {
	freq, power := syntheticSpectrum(100, 1e-3, 1e-9, 300)
	fit, err := FitLorentzian(freq, power)
	require.NoError(t, err)

	// D = π²·fc²·S0 links the plateau form to the D/(π²(fc²+f²)) form.
	want := math.Pi * math.Pi * fit.CornerFreq * fit.CornerFreq * fit.Plateau
	assert.InEpsilon(t, want, fit.Diffusion(), 1e-9)
}

func TestFitLorentzianInputErrors(t *testing.T) {
	freq, power := syntheticSpectrum(100, 1e-3, 1e-9, 20)

	_, err := FitLorentzian(freq[:10], power)
	assert.Error(t, err, "length mismatch")

	_, err = FitLorentzian(freq[:4], power[:4])
	assert.Error(t, err, "too few points")

	freq[0] = 0
	_, err = FitLorentzian(freq, power)
	assert.Error(t, err, "DC bin must be excluded before fitting")

	freq, power = syntheticSpectrum(100, 1e-3, 1e-9, 20)
	power[3] = math.NaN()
	_, err = FitLorentzian(freq, power)
	assert.Error(t, err, "non-finite power")
}

func TestLorentzianEvaluation(t *testing.T) {
	fit := &LorentzianFit{CornerFreq: 100, Plateau: 1e-3, NoiseFloor: 1e-8}
	// At the corner frequency the trap term halves.
	assert.InEpsilon(t, 1e-3/2+1e-8, fit.Lorentzian(100), 1e-12)
	assert.InEpsilon(t, 1e-3+1e-8, fit.Lorentzian(0), 1e-12)
}
