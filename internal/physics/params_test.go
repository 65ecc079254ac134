package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/Schronding/pinzas-opticas/internal/trap"
)

func TestDefaultParamsValid(t *testing.T) {
	p := DefaultParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("default params should validate, got: %v", err)
	}
	// Stokes drag for the reference bead: 6π·0.89e-3·1.25e-6
	want := 6 * math.Pi * DefaultViscosity * DefaultBeadRadius
	if math.Abs(p.Gamma-want)/want > 1e-12 {
		t.Errorf("Gamma = %g, want %g", p.Gamma, want)
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() Params {
		return Params{Temperature: 300, Gamma: 1e-8, KappaX: 5e-6, KappaY: 5e-6, Dt: 1e-4, Steps: 1000}
	}

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero dt", func(p *Params) { p.Dt = 0 }},
		{"negative dt", func(p *Params) { p.Dt = -1e-4 }},
		{"negative temperature", func(p *Params) { p.Temperature = -1 }},
		{"zero gamma", func(p *Params) { p.Gamma = 0 }},
		{"negative kappa", func(p *Params) { p.KappaX = -1e-6 }},
		{"zero steps", func(p *Params) { p.Steps = 0 }},
		{"NaN temperature", func(p *Params) { p.Temperature = math.NaN() }},
		{"unstable timestep", func(p *Params) { p.Dt = 10 }}, // dt·κ/γ >> 1
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, trap.ErrInvalidParameter) {
				t.Errorf("error %v is not ErrInvalidParameter", err)
			}
		})
	}
}

func TestZeroStiffnessIsFreeDiffusion(t *testing.T) {
	p := Params{Temperature: 300, Gamma: 1e-8, KappaX: 0, KappaY: 0, Dt: 1e-4, Steps: 100}
	if err := p.Validate(); err != nil {
		t.Fatalf("kappa=0 should be allowed: %v", err)
	}
	if r := p.StabilityRatio(); r != 0 {
		t.Errorf("StabilityRatio() = %g, want 0 for free diffusion", r)
	}
	if !math.IsInf(p.ThermalVariance(0), 1) {
		t.Error("ThermalVariance(0) should be +Inf")
	}
}

func TestDerivedQuantities(t *testing.T) {
	p := Params{Temperature: 300, Gamma: 1e-8, KappaX: 5e-6, KappaY: 5e-6, Dt: 1e-4, Steps: 1000}

	wantFc := 5e-6 / (2 * math.Pi * 1e-8)
	if got := p.CornerFrequency(p.KappaX); math.Abs(got-wantFc)/wantFc > 1e-12 {
		t.Errorf("CornerFrequency = %g, want %g", got, wantFc)
	}

	wantVar := Boltzmann * 300 / 5e-6
	if got := p.ThermalVariance(p.KappaX); math.Abs(got-wantVar)/wantVar > 1e-12 {
		t.Errorf("ThermalVariance = %g, want %g", got, wantVar)
	}

	wantTau := 1e-8 / 5e-6
	if got := p.RelaxationTime(p.KappaX); math.Abs(got-wantTau)/wantTau > 1e-12 {
		t.Errorf("RelaxationTime = %g, want %g", got, wantTau)
	}
}
