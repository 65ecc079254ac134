package trap

import (
	"errors"
	"math"
	"testing"
)

func TestTrajectoryValidate(t *testing.T) {
	tests := []struct {
		name    string
		tr      Trajectory
		wantErr bool
	}{
		{
			name: "valid",
			tr:   Trajectory{X: []float64{0, 1, 2}, Y: []float64{0, -1, -2}, Dt: 1e-4},
		},
		{
			name:    "length one",
			tr:      Trajectory{X: []float64{0}, Y: []float64{0}, Dt: 1e-4},
			wantErr: true,
		},
		{
			name:    "mismatched axes",
			tr:      Trajectory{X: []float64{0, 1, 2}, Y: []float64{0, 1}, Dt: 1e-4},
			wantErr: true,
		},
		{
			name:    "zero dt",
			tr:      Trajectory{X: []float64{0, 1}, Y: []float64{0, 1}, Dt: 0},
			wantErr: true,
		},
		{
			name:    "NaN sample",
			tr:      Trajectory{X: []float64{0, math.NaN()}, Y: []float64{0, 1}, Dt: 1e-4},
			wantErr: true,
		},
		{
			name:    "Inf sample",
			tr:      Trajectory{X: []float64{0, 1}, Y: []float64{0, math.Inf(1)}, Dt: 1e-4},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tr.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidTrajectory) {
					t.Errorf("error %v is not ErrInvalidTrajectory", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTrajectoryTiming(t *testing.T) {
	tr := Trajectory{X: make([]float64, 1000), Y: make([]float64, 1000), Dt: 1e-3}
	if got := tr.Len(); got != 1000 {
		t.Errorf("Len() = %d, want 1000", got)
	}
	if got := tr.SampleRate(); got != 1000 {
		t.Errorf("SampleRate() = %g, want 1000", got)
	}
	if got := tr.Duration(); got != 1.0 {
		t.Errorf("Duration() = %g, want 1.0", got)
	}
}
