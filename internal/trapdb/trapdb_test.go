package trapdb

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/Schronding/pinzas-opticas/internal/audit"
	"github.com/Schronding/pinzas-opticas/internal/physics"
	"github.com/Schronding/pinzas-opticas/internal/spectral"
)

const migrationsDir = "../../migrations"

func newTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.MigrateUp(migrationsDir); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	return db
}

func testParams() physics.Params {
	return physics.Params{Temperature: 300, Gamma: 1e-8, KappaX: 5e-6, KappaY: 5e-6, Dt: 1e-4, Steps: 1000}
}

func TestMigrateUpDown(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := db.MigrateVersion(migrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("schema should not be dirty after MigrateUp")
	}
	if version == 0 {
		t.Error("expected a non-zero schema version")
	}

	if err := db.MigrateDown(migrationsDir); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
}

func TestCreateAndGetRun(t *testing.T) {
	db := newTestDB(t)
	p := testParams()

	id, err := db.CreateRun("simulation", 42, p, 1000)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if id == "" {
		t.Fatal("CreateRun returned empty id")
	}

	run, err := db.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Source != "simulation" {
		t.Errorf("Source = %q, want simulation", run.Source)
	}
	if run.Seed != 42 {
		t.Errorf("Seed = %d, want 42", run.Seed)
	}
	if run.Params.KappaX != p.KappaX {
		t.Errorf("round-tripped KappaX = %g, want %g", run.Params.KappaX, p.KappaX)
	}
	if run.Samples != 1000 {
		t.Errorf("Samples = %d, want 1000", run.Samples)
	}

	if _, err := db.GetRun("no-such-run"); err == nil {
		t.Error("expected error for unknown run id")
	}
}

func TestRecordAudit(t *testing.T) {
	db := newTestDB(t)
	id, err := db.CreateRun("experiment", 0, testParams(), 500)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	rep := &audit.Report{
		Covariance:  [2][2]float64{{1.0, 0.01}, {0.01, 1.1}},
		Correlation: 0.0095,
		Threshold:   0.3,
		Pass:        true,
	}
	if err := db.RecordAudit(id, rep); err != nil {
		t.Fatalf("RecordAudit failed: %v", err)
	}

	// Degenerate report: NaN correlation must be storable.
	degenerate := &audit.Report{
		Correlation: math.NaN(),
		Threshold:   0.3,
		Pass:        false,
		Violations:  []audit.Condition{audit.CondDegenerateX},
	}
	if err := db.RecordAudit(id, degenerate); err != nil {
		t.Fatalf("RecordAudit with NaN correlation failed: %v", err)
	}
}

func TestRecordAndListFits(t *testing.T) {
	db := newTestDB(t)
	id, err := db.CreateRun("simulation", 7, testParams(), 100000)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	okFit := &spectral.AxisResult{
		Fit: &spectral.LorentzianFit{
			CornerFreq: 79.6,
			Plateau:    1e-3,
			NoiseFloor: 1e-9,
			RSS:        1e-10,
			RSquared:   0.998,
			Converged:  true,
		},
		Stiffness: 5e-6,
	}
	failedFit := &spectral.AxisResult{
		Fit:       &spectral.LorentzianFit{Converged: false},
		Stiffness: math.NaN(),
	}

	if err := db.RecordFit(id, "x", okFit); err != nil {
		t.Fatalf("RecordFit x failed: %v", err)
	}
	if err := db.RecordFit(id, "y", failedFit); err != nil {
		t.Fatalf("RecordFit y (failed fit) failed: %v", err)
	}

	fits, err := db.ListFits(id)
	if err != nil {
		t.Fatalf("ListFits failed: %v", err)
	}
	if len(fits) != 2 {
		t.Fatalf("got %d fits, want 2", len(fits))
	}
	// Ordered by axis: x first.
	if fits[0].Axis != "x" || !fits[0].Converged {
		t.Errorf("fits[0] = %+v, want converged x fit", fits[0])
	}
	if fits[0].Stiffness != 5e-6 {
		t.Errorf("stored stiffness = %g, want 5e-6", fits[0].Stiffness)
	}
	if fits[1].Axis != "y" || fits[1].Converged {
		t.Errorf("fits[1] = %+v, want non-converged y fit", fits[1])
	}
	if !math.IsNaN(fits[1].Stiffness) {
		t.Errorf("failed fit stiffness = %g, want NaN", fits[1].Stiffness)
	}
}
