package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Schronding/pinzas-opticas/internal/audit"
	"github.com/Schronding/pinzas-opticas/internal/spectral"
)

// WriteHTML renders a single-page calibration report: the per-axis PSD
// with its fitted Lorentzian and the audit verdict in the subtitles.
func WriteHTML(w io.Writer, rep *audit.Report, res *spectral.Result) error {
	page := components.NewPage()

	auditLine := "audit: no report"
	if rep != nil {
		verdict := "PASS"
		if !rep.Pass {
			verdict = fmt.Sprintf("FAIL %v", rep.Violations)
		}
		auditLine = fmt.Sprintf("audit: %s (ρ=%.4f, threshold %.2f)", verdict, rep.Correlation, rep.Threshold)
	}

	page.AddCharts(
		psdChart("X", &res.X, auditLine),
		psdChart("Y", &res.Y, auditLine),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func psdChart(axis string, ar *spectral.AxisResult, auditLine string) components.Charter {
	subtitle := fmt.Sprintf("fit did not converge | %s", auditLine)
	if ar.Fit.Converged {
		subtitle = fmt.Sprintf("fc=%.1f Hz  k=%.3e N/m  R²=%.3f | %s",
			ar.Fit.CornerFreq, ar.Stiffness, ar.Fit.RSquared, auditLine)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Power spectral density, %s axis", axis),
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "log", Name: "f (Hz)"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "log", Name: "PSD"}),
	)

	var data []opts.ScatterData
	var fitData []opts.LineData
	for i, f := range ar.PSD.Freq {
		if f <= 0 || ar.PSD.Power[i] <= 0 {
			continue // log axes
		}
		data = append(data, opts.ScatterData{Value: []interface{}{f, ar.PSD.Power[i]}, SymbolSize: 4})
		if ar.Fit.Converged {
			model := ar.Fit.Lorentzian(f)
			if !math.IsNaN(model) && model > 0 {
				fitData = append(fitData, opts.LineData{Value: []interface{}{f, model}})
			}
		}
	}
	scatter.AddSeries("Welch PSD", data)

	if len(fitData) > 0 {
		line := charts.NewLine()
		line.AddSeries("Lorentzian fit", fitData,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		scatter.Overlap(line)
	}
	return scatter
}
