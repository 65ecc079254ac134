// Command trap-analyze calibrates an optical trap from a recorded
// trajectory: it audits the axis correlation, computes the Welch PSD,
// fits a Lorentzian per axis and reports corner frequency and
// stiffness. Input is either a two-column CSV trajectory (as written
// by trap-sim) or a raw QPD capture (Sx/Sy/Sum channel files).
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/Schronding/pinzas-opticas/internal/audit"
	"github.com/Schronding/pinzas-opticas/internal/physics"
	"github.com/Schronding/pinzas-opticas/internal/qpd"
	"github.com/Schronding/pinzas-opticas/internal/report"
	"github.com/Schronding/pinzas-opticas/internal/spectral"
	"github.com/Schronding/pinzas-opticas/internal/trap"
	"github.com/Schronding/pinzas-opticas/internal/trapdb"
	"github.com/Schronding/pinzas-opticas/internal/version"
)

func main() {
	var (
		configPath  = flag.String("config", "", "JSON trap config file")
		csvPath     = flag.String("csv", "", "two-column CSV trajectory input")
		sxPath      = flag.String("sx", "", "QPD Sx channel file")
		syPath      = flag.String("sy", "", "QPD Sy channel file")
		sumPath     = flag.String("sum", "", "QPD Sum channel file")
		dt          = flag.Float64("dt", 0, "sample interval in seconds (overrides config)")
		threshold   = flag.Float64("threshold", 0, "audit correlation threshold (default from config)")
		segLen      = flag.Int("seg", 0, "Welch segment length (default from config)")
		bandLow     = flag.Float64("band-low", 0, "fit band lower edge in Hz")
		bandHigh    = flag.Float64("band-high", 0, "fit band upper edge in Hz")
		calibrate   = flag.Bool("calibrate", false, "rescale QPD volts to meters by equipartition before fitting")
		strict      = flag.Bool("strict", false, "treat an audit failure as fatal")
		htmlPath    = flag.String("report", "", "write an HTML calibration report")
		plotPrefix  = flag.String("plot-prefix", "", "write PSD PNG plots as <prefix>_x.png / <prefix>_y.png")
		dbPath      = flag.String("db", "", "record the analysis in this SQLite database")
		migrations  = flag.String("migrations", "migrations", "migrations directory for -db")
		debugAddr   = flag.String("debug-addr", "", "serve the tailSQL debug console on this address after analysis")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("trap-analyze %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := physics.EmptyTrapConfig()
	if *configPath != "" {
		loaded, err := physics.LoadTrapConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	params := cfg.Params()
	if *dt > 0 {
		params.Dt = *dt
	}
	if *threshold == 0 {
		*threshold = cfg.GetCorrelationThreshold()
	}

	tr, err := loadTrajectory(*csvPath, *sxPath, *syPath, *sumPath, params, *calibrate)
	if err != nil {
		log.Fatalf("failed to load trajectory: %v", err)
	}
	log.Printf("loaded %d samples at %.0f Hz", tr.Len(), tr.SampleRate())

	rep, err := audit.Audit(tr, *threshold)
	if err != nil {
		log.Fatalf("audit failed: %v", err)
	}
	if rep.Pass {
		log.Printf("audit pass: correlation %.4f (threshold %.2f)", rep.Correlation, rep.Threshold)
	} else {
		log.Printf("audit FAIL: correlation %.4f, violations %v", rep.Correlation, rep.Violations)
		if *strict {
			log.Fatalf("refusing to calibrate flagged data (-strict)")
		}
	}

	opts := spectral.Options{
		SegmentLength: *segLen,
		FitBandLow:    *bandLow,
		FitBandHigh:   *bandHigh,
	}
	if opts.SegmentLength == 0 {
		opts.SegmentLength = cfg.GetSegmentLength()
	}
	if opts.FitBandLow == 0 {
		opts.FitBandLow = cfg.GetFitBandLow()
	}
	if opts.FitBandHigh == 0 {
		opts.FitBandHigh = cfg.GetFitBandHigh()
	}

	res, err := spectral.Analyze(tr, params, opts)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}
	printAxis("x", &res.X)
	printAxis("y", &res.Y)

	if *plotPrefix != "" {
		for _, ax := range []struct {
			name string
			r    *spectral.AxisResult
		}{{"x", &res.X}, {"y", &res.Y}} {
			path := fmt.Sprintf("%s_%s.png", *plotPrefix, ax.name)
			if err := report.SavePSDPlot(path, ax.name, ax.r); err != nil {
				log.Fatalf("failed to plot %s axis PSD: %v", ax.name, err)
			}
			log.Printf("wrote %s", path)
		}
	}

	if *htmlPath != "" {
		f, err := os.Create(*htmlPath)
		if err != nil {
			log.Fatalf("failed to create report file: %v", err)
		}
		if err := report.WriteHTML(f, rep, res); err != nil {
			log.Fatalf("failed to write report: %v", err)
		}
		f.Close()
		log.Printf("wrote report to %s", *htmlPath)
	}

	if *dbPath != "" {
		db, err := trapdb.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		if err := db.MigrateUp(*migrations); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		runID, err := db.CreateRun("experiment", 0, params, tr.Len())
		if err != nil {
			log.Fatalf("failed to record run: %v", err)
		}
		if err := db.RecordAudit(runID, rep); err != nil {
			log.Fatalf("failed to record audit: %v", err)
		}
		if err := db.RecordFit(runID, "x", &res.X); err != nil {
			log.Fatalf("failed to record x fit: %v", err)
		}
		if err := db.RecordFit(runID, "y", &res.Y); err != nil {
			log.Fatalf("failed to record y fit: %v", err)
		}
		log.Printf("recorded run %s in %s", runID, *dbPath)

		if *debugAddr != "" {
			handler, err := db.DebugHandler(*dbPath)
			if err != nil {
				log.Fatalf("failed to build debug handler: %v", err)
			}
			log.Printf("serving debug console on %s", *debugAddr)
			log.Fatal(http.ListenAndServe(*debugAddr, handler))
		}
	}
}

func printAxis(name string, ar *spectral.AxisResult) {
	if !ar.Fit.Converged {
		log.Printf("%s axis: fit did not converge (RSS %.3e after %d evaluations)", name, ar.Fit.RSS, ar.Fit.FuncEvals)
		return
	}
	log.Printf("%s axis: fc=%.2f Hz  k=%.4e N/m  R²=%.4f", name, ar.Fit.CornerFreq, ar.Stiffness, ar.Fit.RSquared)
}

func loadTrajectory(csvPath, sxPath, syPath, sumPath string, params physics.Params, calibrate bool) (*trap.Trajectory, error) {
	switch {
	case csvPath != "":
		return readTrajectoryCSV(csvPath, params.Dt)
	case sxPath != "" && syPath != "" && sumPath != "":
		// Flag duplicated channel files before any numerics run.
		if same, err := audit.SameFile(sxPath, syPath); err == nil && same {
			log.Printf("WARNING: %s and %s are byte-identical captures", sxPath, syPath)
		}
		session, err := qpd.ReadSession(sxPath, syPath, sumPath)
		if err != nil {
			return nil, err
		}
		tr, err := session.Normalize(params.Dt)
		if err != nil {
			return nil, err
		}
		if calibrate {
			return qpd.Calibrate(tr, params)
		}
		return tr, nil
	default:
		return nil, fmt.Errorf("provide either -csv or all of -sx, -sy, -sum")
	}
}

func readTrajectoryCSV(path string, dt float64) (*trap.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	tr := &trap.Trajectory{Dt: dt}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if len(rec) < 2 {
			continue
		}
		x, errX := strconv.ParseFloat(rec[0], 64)
		y, errY := strconv.ParseFloat(rec[1], 64)
		if errX != nil || errY != nil {
			continue // header row
		}
		tr.X = append(tr.X, x)
		tr.Y = append(tr.Y, y)
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	return tr, nil
}
