// Package trapdb persists simulation runs, audit reports and spectral
// calibration results in a local SQLite database so experiments can be
// compared across sessions.
package trapdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Schronding/pinzas-opticas/internal/audit"
	"github.com/Schronding/pinzas-opticas/internal/physics"
	"github.com/Schronding/pinzas-opticas/internal/spectral"
)

type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the database at path. Run MigrateUp to
// bring the schema to the latest version before writing.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return &DB{db}, nil
}

// Run is one recorded trajectory source: a simulation (with its seed)
// or an imported sensor capture.
type Run struct {
	ID        string
	Source    string // "simulation" or "experiment"
	Seed      int64
	Params    physics.Params
	Samples   int
	CreatedAt time.Time
}

// CreateRun inserts a run record and returns its generated ID.
func (db *DB) CreateRun(source string, seed int64, p physics.Params, samples int) (string, error) {
	paramsJSON, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode params: %w", err)
	}
	id := uuid.NewString()
	_, err = db.Exec(
		`INSERT INTO runs (id, source, seed, params, samples) VALUES (?, ?, ?, ?, ?)`,
		id, source, seed, string(paramsJSON), samples,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// GetRun fetches one run by ID.
func (db *DB) GetRun(id string) (*Run, error) {
	var r Run
	var paramsJSON string
	var created string
	err := db.QueryRow(
		`SELECT id, source, seed, params, samples, created_at FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.Source, &r.Seed, &paramsJSON, &r.Samples, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
		return nil, fmt.Errorf("failed to decode params for run %s: %w", id, err)
	}
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		r.CreatedAt = t
	} else if t, err := time.Parse("2006-01-02 15:04:05", created); err == nil {
		r.CreatedAt = t
	}
	return &r, nil
}

// RecordAudit stores the auditor's verdict for a run.
func (db *DB) RecordAudit(runID string, rep *audit.Report) error {
	violations, err := json.Marshal(rep.Violations)
	if err != nil {
		return fmt.Errorf("failed to encode violations: %w", err)
	}
	// Correlation is NaN for degenerate input; store NULL in that case.
	corr := sql.NullFloat64{Float64: rep.Correlation, Valid: !math.IsNaN(rep.Correlation)}
	_, err = db.Exec(
		`INSERT INTO audits (run_id, correlation, threshold, pass, var_x, var_y, cov_xy, mean_abs_diff, max_abs_diff, violations)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, corr, rep.Threshold, rep.Pass,
		rep.Covariance[0][0], rep.Covariance[1][1], rep.Covariance[0][1],
		rep.MeanAbsDiff, rep.MaxAbsDiff, string(violations),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit: %w", err)
	}
	return nil
}

// RecordFit stores one axis of a spectral calibration result.
func (db *DB) RecordFit(runID, axis string, ar *spectral.AxisResult) error {
	// Stiffness is NaN when the fit did not converge; store NULL.
	stiffness := sql.NullFloat64{Float64: ar.Stiffness, Valid: !math.IsNaN(ar.Stiffness)}
	_, err := db.Exec(
		`INSERT INTO fits (run_id, axis, corner_freq_hz, plateau, noise_floor, stiffness_n_m, rss, r_squared, converged)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, axis, ar.Fit.CornerFreq, ar.Fit.Plateau, ar.Fit.NoiseFloor,
		stiffness, ar.Fit.RSS, ar.Fit.RSquared, ar.Fit.Converged,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fit: %w", err)
	}
	return nil
}

// FitRow is a stored calibration row as read back from the database.
type FitRow struct {
	RunID      string
	Axis       string
	CornerFreq float64
	Stiffness  float64
	RSquared   float64
	Converged  bool
}

// ListFits returns the stored fits for a run, x axis first.
func (db *DB) ListFits(runID string) ([]FitRow, error) {
	rows, err := db.Query(
		`SELECT run_id, axis, corner_freq_hz, stiffness_n_m, r_squared, converged
		 FROM fits WHERE run_id = ? ORDER BY axis`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query fits: %w", err)
	}
	defer rows.Close()

	var out []FitRow
	for rows.Next() {
		var f FitRow
		var stiffness sql.NullFloat64
		if err := rows.Scan(&f.RunID, &f.Axis, &f.CornerFreq, &stiffness, &f.RSquared, &f.Converged); err != nil {
			return nil, fmt.Errorf("failed to scan fit row: %w", err)
		}
		if stiffness.Valid {
			f.Stiffness = stiffness.Float64
		} else {
			f.Stiffness = math.NaN()
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
