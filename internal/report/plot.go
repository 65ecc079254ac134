// Package report renders the terminal artifacts of a calibration run:
// PSD/fit plots as PNG via gonum/plot and a self-contained HTML report
// via go-echarts. The core numerics never call into this package; it
// only consumes their read-only results.
package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Schronding/pinzas-opticas/internal/spectral"
	"github.com/Schronding/pinzas-opticas/internal/trap"
)

// SavePSDPlot writes a log-log plot of the axis PSD with the fitted
// Lorentzian overlaid.
func SavePSDPlot(path, axis string, ar *spectral.AxisResult) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("PSD %s axis (fc=%.1f Hz)", axis, ar.Fit.CornerFreq)
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = "PSD (signal²/Hz)"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	var dataPts plotter.XYs
	var fitPts plotter.XYs
	for i, f := range ar.PSD.Freq {
		if f <= 0 || ar.PSD.Power[i] <= 0 {
			continue // log scale cannot show these
		}
		dataPts = append(dataPts, plotter.XY{X: f, Y: ar.PSD.Power[i]})
		if ar.Fit.Converged {
			fitPts = append(fitPts, plotter.XY{X: f, Y: ar.Fit.Lorentzian(f)})
		}
	}
	if len(dataPts) == 0 {
		return fmt.Errorf("no positive spectral points to plot for axis %s", axis)
	}

	scatter, err := plotter.NewScatter(dataPts)
	if err != nil {
		return fmt.Errorf("failed to build PSD scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(1)
	scatter.GlyphStyle.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(scatter)
	p.Legend.Add("Welch PSD", scatter)

	if len(fitPts) > 0 {
		line, err := plotter.NewLine(fitPts)
		if err != nil {
			return fmt.Errorf("failed to build fit line: %w", err)
		}
		line.Width = vg.Points(1.5)
		line.Color = color.RGBA{R: 220, G: 60, B: 60, A: 255}
		p.Add(line)
		p.Legend.Add("Lorentzian fit", line)
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save PSD plot: %w", err)
	}
	return nil
}

// SaveTrajectoryPlot writes both position series against time.
func SaveTrajectoryPlot(path string, tr *trap.Trajectory) error {
	p := plot.New()
	p.Title.Text = "Bead trajectory"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Position (m)"

	xPts := make(plotter.XYs, tr.Len())
	yPts := make(plotter.XYs, tr.Len())
	for i := 0; i < tr.Len(); i++ {
		t := float64(i) * tr.Dt
		xPts[i] = plotter.XY{X: t, Y: tr.X[i]}
		yPts[i] = plotter.XY{X: t, Y: tr.Y[i]}
	}

	xLine, err := plotter.NewLine(xPts)
	if err != nil {
		return fmt.Errorf("failed to build x line: %w", err)
	}
	xLine.Width = vg.Points(0.5)
	xLine.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(xLine)
	p.Legend.Add("x", xLine)

	yLine, err := plotter.NewLine(yPts)
	if err != nil {
		return fmt.Errorf("failed to build y line: %w", err)
	}
	yLine.Width = vg.Points(0.5)
	yLine.Color = color.RGBA{R: 220, G: 60, B: 60, A: 255}
	p.Add(yLine)
	p.Legend.Add("y", yLine)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save trajectory plot: %w", err)
	}
	return nil
}
