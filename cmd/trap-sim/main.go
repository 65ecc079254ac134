// Command trap-sim generates synthetic optical-trap trajectories by
// integrating the overdamped Langevin equation, and optionally audits,
// stores and plots the result.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/Schronding/pinzas-opticas/internal/audit"
	"github.com/Schronding/pinzas-opticas/internal/physics"
	"github.com/Schronding/pinzas-opticas/internal/report"
	"github.com/Schronding/pinzas-opticas/internal/sim"
	"github.com/Schronding/pinzas-opticas/internal/trap"
	"github.com/Schronding/pinzas-opticas/internal/trapdb"
	"github.com/Schronding/pinzas-opticas/internal/version"
)

func main() {
	var (
		configPath  = flag.String("config", "", "JSON trap config file (defaults baked in when empty)")
		seed        = flag.Int64("seed", 1, "random seed for the noise source")
		steps       = flag.Int("steps", 0, "override step count")
		dt          = flag.Float64("dt", 0, "override timestep in seconds")
		kappaX      = flag.Float64("kappa-x", 0, "override x trap stiffness in N/m")
		kappaY      = flag.Float64("kappa-y", 0, "override y trap stiffness in N/m")
		forceMap    = flag.String("force-map", "", "CSV force map for anharmonic traps (x,y,Fx,Fy in nm/N)")
		outPath     = flag.String("out", "", "write the trajectory as CSV (x,y per row)")
		plotPath    = flag.String("plot", "", "write a trajectory PNG plot")
		runAudit    = flag.Bool("audit", true, "audit axis correlation after simulating")
		dbPath      = flag.String("db", "", "record the run in this SQLite database")
		migrations  = flag.String("migrations", "migrations", "migrations directory for -db")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("trap-sim %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	params := physics.DefaultParams()
	if *configPath != "" {
		cfg, err := physics.LoadTrapConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		params = cfg.Params()
	}
	if *steps > 0 {
		params.Steps = *steps
	}
	if *dt > 0 {
		params.Dt = *dt
	}
	if *kappaX > 0 {
		params.KappaX = *kappaX
	}
	if *kappaY > 0 {
		params.KappaY = *kappaY
	}

	opts := []sim.Option{sim.WithSeed(*seed)}
	if *forceMap != "" {
		fm, err := sim.LoadForceMap(*forceMap)
		if err != nil {
			log.Fatalf("failed to load force map: %v", err)
		}
		opts = append(opts, sim.WithForceField(fm))
	}

	simulator, err := sim.New(params, opts...)
	if err != nil {
		log.Fatalf("invalid parameters: %v", err)
	}
	log.Printf("simulating %d steps, dt=%g s, kappa=(%.3e, %.3e) N/m, stability ratio %.3g",
		params.Steps, params.Dt, params.KappaX, params.KappaY, params.StabilityRatio())

	tr, err := simulator.Run()
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	var rep *audit.Report
	if *runAudit {
		rep, err = audit.Audit(tr, audit.DefaultThreshold)
		if err != nil {
			log.Fatalf("audit failed: %v", err)
		}
		if rep.Pass {
			log.Printf("audit pass: correlation %.4f (threshold %.2f)", rep.Correlation, rep.Threshold)
		} else {
			log.Printf("audit FAIL: correlation %.4f, violations %v", rep.Correlation, rep.Violations)
		}
	}

	if *outPath != "" {
		if err := writeTrajectoryCSV(*outPath, tr); err != nil {
			log.Fatalf("failed to write trajectory: %v", err)
		}
		log.Printf("wrote %d samples to %s", tr.Len(), *outPath)
	}

	if *plotPath != "" {
		if err := report.SaveTrajectoryPlot(*plotPath, tr); err != nil {
			log.Fatalf("failed to plot trajectory: %v", err)
		}
		log.Printf("wrote trajectory plot to %s", *plotPath)
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
		runID, err := db.CreateRun("simulation", *seed, params, tr.Len())
		if err != nil {
			log.Fatalf("failed to record run: %v", err)
		}
		if rep != nil {
			if err := db.RecordAudit(runID, rep); err != nil {
				log.Fatalf("failed to record audit: %v", err)
			}
		}
		log.Printf("recorded run %s in %s", runID, *dbPath)
	}
}

func writeTrajectoryCSV(path string, tr *trap.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"x", "y"}); err != nil {
		return err
	}
	for i := 0; i < tr.Len(); i++ {
		rec := []string{
			strconv.FormatFloat(tr.X[i], 'e', -1, 64),
			strconv.FormatFloat(tr.Y[i], 'e', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
