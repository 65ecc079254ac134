package qpd

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/stat"

	"github.com/Schronding/pinzas-opticas/internal/physics"
	"github.com/Schronding/pinzas-opticas/internal/trap"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestReadChannelFlattensBlocks(t *testing.T) {
	dir := t.TempDir()
	// Multi-column rows are flattened row-major, blank lines skipped.
	path := writeFile(t, dir, "sx.dat", "0.1\t0.2\t0.3\n\n0.4\t0.5\t0.6\n")

	vals, err := ReadChannel(path)
	if err != nil {
		t.Fatalf("ReadChannel failed: %v", err)
	}
	want := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}
	if len(vals) != len(want) {
		t.Fatalf("got %d values, want %d", len(vals), len(want))
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("vals[%d] = %g, want %g", i, vals[i], want[i])
		}
	}
}

func TestReadChannelRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.dat", "0.1\tnot-a-number\n")
	if _, err := ReadChannel(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := ReadChannel(filepath.Join(dir, "missing.dat")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadSessionTruncatesToCommonLength(t *testing.T) {
	dir := t.TempDir()
	sx := writeFile(t, dir, "sx.dat", "1\n2\n3\n4\n5\n")
	sy := writeFile(t, dir, "sy.dat", "1\n2\n3\n")
	sum := writeFile(t, dir, "sum.dat", "10\n10\n10\n10\n")

	s, err := ReadSession(sx, sy, sum)
	if err != nil {
		t.Fatalf("ReadSession failed: %v", err)
	}
	if len(s.Sx) != 3 || len(s.Sy) != 3 || len(s.Sum) != 3 {
		t.Errorf("channels not truncated to common length 3: %d/%d/%d", len(s.Sx), len(s.Sy), len(s.Sum))
	}
}

func TestNormalize(t *testing.T) {
	s := &Session{
		Sx:  []float64{1, 2, 3, 4},
		Sy:  []float64{4, 3, 2, 1},
		Sum: []float64{10, 10, 10, 10},
	}
	tr, err := s.Normalize(1e-4)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got := stat.Mean(tr.X, nil); math.Abs(got) > 1e-15 {
		t.Errorf("normalised x mean = %g, want 0", got)
	}
	if got := stat.Mean(tr.Y, nil); math.Abs(got) > 1e-15 {
		t.Errorf("normalised y mean = %g, want 0", got)
	}
	if tr.Dt != 1e-4 {
		t.Errorf("Dt = %g, want 1e-4", tr.Dt)
	}
}

func TestNormalizeRejectsZeroIntensity(t *testing.T) {
	s := &Session{
		Sx:  []float64{1, 2},
		Sy:  []float64{1, 2},
		Sum: []float64{10, 0},
	}
	if _, err := s.Normalize(1e-4); err == nil {
		t.Error("expected error for zero total intensity")
	}
}

func TestCalibrationFactor(t *testing.T) {
	p := physics.Params{Temperature: 300, Gamma: 1e-8, KappaX: 5e-6, KappaY: 5e-6, Dt: 1e-4, Steps: 100}

	// A signal with unit standard deviation calibrates to exactly the
	// thermal position spread.
	signal := []float64{-1, 1, -1, 1, -1, 1}
	sd := stat.StdDev(signal, nil)
	factor, err := CalibrationFactor(signal, p, p.KappaX)
	if err != nil {
		t.Fatalf("CalibrationFactor failed: %v", err)
	}
	want := math.Sqrt(physics.Boltzmann*300/5e-6) / sd
	if math.Abs(factor-want)/want > 1e-12 {
		t.Errorf("factor = %g, want %g", factor, want)
	}

	if _, err := CalibrationFactor(signal, p, 0); err == nil {
		t.Error("expected error for zero stiffness")
	}
	if _, err := CalibrationFactor([]float64{2, 2, 2}, p, p.KappaX); err == nil {
		t.Error("expected error for degenerate signal")
	}
}

func TestCalibrateScalesTrajectory(t *testing.T) {
	p := physics.Params{Temperature: 300, Gamma: 1e-8, KappaX: 5e-6, KappaY: 5e-6, Dt: 1e-4, Steps: 100}
	tr := &trap.Trajectory{
		X:  []float64{-0.01, 0.01, -0.01, 0.01},
		Y:  []float64{-0.02, 0.02, -0.02, 0.02},
		Dt: 1e-4,
	}

	out, err := Calibrate(tr, p)
	if err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	// After calibration both axes carry the thermal spread.
	want := math.Sqrt(physics.Boltzmann * 300 / 5e-6)
	if got := stat.StdDev(out.X, nil); math.Abs(got-want)/want > 1e-9 {
		t.Errorf("calibrated x spread = %g, want %g", got, want)
	}
	if got := stat.StdDev(out.Y, nil); math.Abs(got-want)/want > 1e-9 {
		t.Errorf("calibrated y spread = %g, want %g", got, want)
	}
	// Input untouched.
	if tr.X[0] != -0.01 {
		t.Error("Calibrate must not mutate its input")
	}
}
