// Package qpd conditions raw quadrant-photodiode sensor logs into
// trajectories the auditor and the spectral processor accept. A capture
// session writes three tab-separated files (the Sx, Sy and Sum channel
// dumps); the axis signals are normalised against the total intensity
// and mean-centred, and can be converted from volts to meters by
// equipartition calibration against a known trap stiffness.
package qpd

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Schronding/pinzas-opticas/internal/physics"
	"github.com/Schronding/pinzas-opticas/internal/trap"
	"gonum.org/v1/gonum/stat"
)

// ReadChannel reads one tab-separated channel dump. Rows may contain
// multiple columns (block captures); values are flattened row-major
// into a single series. Blank lines are skipped.
func ReadChannel(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open channel file: %w", err)
	}
	defer f.Close()

	var out []float64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		for _, field := range strings.Fields(text) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: invalid value %q: %w", path, line, field, err)
			}
			out = append(out, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return out, nil
}

// Session is one decoded capture: the raw Sx, Sy and Sum channel
// series, truncated to their common length.
type Session struct {
	Sx, Sy, Sum []float64
}

// ReadSession loads the three channel files of one capture and
// truncates them to the shortest channel.
func ReadSession(sxPath, syPath, sumPath string) (*Session, error) {
	sx, err := ReadChannel(sxPath)
	if err != nil {
		return nil, err
	}
	sy, err := ReadChannel(syPath)
	if err != nil {
		return nil, err
	}
	sum, err := ReadChannel(sumPath)
	if err != nil {
		return nil, err
	}

	n := len(sx)
	if len(sy) < n {
		n = len(sy)
	}
	if len(sum) < n {
		n = len(sum)
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: common channel length %d is too short", trap.ErrInvalidTrajectory, n)
	}
	return &Session{Sx: sx[:n], Sy: sy[:n], Sum: sum[:n]}, nil
}

// Normalize converts the session into a trajectory in normalised
// detector units: each axis divided by the total intensity and
// mean-centred, sampled at interval dt. Division by a zero Sum sample
// is rejected rather than propagated as Inf.
func (s *Session) Normalize(dt float64) (*trap.Trajectory, error) {
	n := len(s.Sx)
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		if s.Sum[i] == 0 {
			return nil, fmt.Errorf("%w: zero total intensity at sample %d", trap.ErrInvalidTrajectory, i)
		}
		x[i] = s.Sx[i] / s.Sum[i]
		y[i] = s.Sy[i] / s.Sum[i]
	}
	meanX := stat.Mean(x, nil)
	meanY := stat.Mean(y, nil)
	for i := 0; i < n; i++ {
		x[i] -= meanX
		y[i] -= meanY
	}
	tr := &trap.Trajectory{X: x, Y: y, Dt: dt}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	return tr, nil
}

// CalibrationFactor returns the volts-to-meters scale for one axis by
// equipartition: the theoretical position spread sqrt(kB·T/κ) divided
// by the measured spread of the normalised signal.
func CalibrationFactor(signal []float64, p physics.Params, kappa float64) (float64, error) {
	if kappa <= 0 {
		return 0, fmt.Errorf("%w: equipartition calibration needs positive stiffness, got %g", trap.ErrInvalidParameter, kappa)
	}
	sd := stat.StdDev(signal, nil)
	if sd == 0 || math.IsNaN(sd) {
		return 0, fmt.Errorf("%w: degenerate signal, cannot calibrate", trap.ErrInvalidTrajectory)
	}
	return math.Sqrt(p.ThermalVariance(kappa)) / sd, nil
}

// Calibrate rescales a normalised trajectory into meters using
// per-axis equipartition factors derived from the parameter set.
func Calibrate(tr *trap.Trajectory, p physics.Params) (*trap.Trajectory, error) {
	fx, err := CalibrationFactor(tr.X, p, p.KappaX)
	if err != nil {
		return nil, fmt.Errorf("calibrate x: %w", err)
	}
	fy, err := CalibrationFactor(tr.Y, p, p.KappaY)
	if err != nil {
		return nil, fmt.Errorf("calibrate y: %w", err)
	}
	out := &trap.Trajectory{
		X:  make([]float64, tr.Len()),
		Y:  make([]float64, tr.Len()),
		Dt: tr.Dt,
	}
	for i := range tr.X {
		out.X[i] = tr.X[i] * fx
		out.Y[i] = tr.Y[i] * fy
	}
	return out, nil
}
