package sim

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ForceMap is a precomputed force-vs-position table on a regular grid,
// generated offline by Mie/T-matrix tooling and exported as CSV. Grid
// coordinates are in nanometers (matching the exporter), forces in
// newtons. Lookups bilinearly interpolate between grid nodes; positions
// outside the mapped region see zero optical force.
type ForceMap struct {
	xs []float64 // sorted unique grid x, nm
	ys []float64 // sorted unique grid y, nm
	fx [][]float64
	fy [][]float64
}

// LoadForceMap reads a force-map CSV with columns x,y,Fx,Fy. Header and
// comment lines (leading '#' or non-numeric first field) are skipped.
// The points must form a complete regular grid.
func LoadForceMap(path string) (*ForceMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open force map: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse force map CSV: %w", err)
	}

	type node struct{ x, y, fx, fy float64 }
	var nodes []node
	for _, rec := range records {
		if len(rec) < 4 {
			continue
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if err != nil {
			// header row
			continue
		}
		y, err1 := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		fx, err2 := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		fy, err3 := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("malformed force map row %v", rec)
		}
		nodes = append(nodes, node{x, y, fx, fy})
	}
	if len(nodes) < 4 {
		return nil, fmt.Errorf("force map has %d usable rows, need at least 4", len(nodes))
	}

	uniq := func(vals []float64) []float64 {
		sort.Float64s(vals)
		out := vals[:1]
		for _, v := range vals[1:] {
			if v != out[len(out)-1] {
				out = append(out, v)
			}
		}
		return out
	}
	var xsAll, ysAll []float64
	for _, n := range nodes {
		xsAll = append(xsAll, n.x)
		ysAll = append(ysAll, n.y)
	}
	m := &ForceMap{xs: uniq(xsAll), ys: uniq(ysAll)}
	if len(m.xs) < 2 || len(m.ys) < 2 {
		return nil, fmt.Errorf("force map grid needs at least 2 distinct values per axis, got %dx%d", len(m.xs), len(m.ys))
	}
	if len(m.xs)*len(m.ys) != len(nodes) {
		return nil, fmt.Errorf("force map is not a complete %dx%d grid (%d rows)", len(m.xs), len(m.ys), len(nodes))
	}

	m.fx = make([][]float64, len(m.xs))
	m.fy = make([][]float64, len(m.xs))
	for i := range m.fx {
		m.fx[i] = make([]float64, len(m.ys))
		m.fy[i] = make([]float64, len(m.ys))
	}
	for _, n := range nodes {
		i := sort.SearchFloat64s(m.xs, n.x)
		j := sort.SearchFloat64s(m.ys, n.y)
		m.fx[i][j] = n.fx
		m.fy[i][j] = n.fy
	}
	return m, nil
}

// Force implements ForceField. Positions arrive in meters and are
// converted to the map's nanometer grid before lookup.
func (m *ForceMap) Force(x, y float64) (float64, float64) {
	xnm := x * 1e9
	ynm := y * 1e9
	if xnm < m.xs[0] || xnm > m.xs[len(m.xs)-1] || ynm < m.ys[0] || ynm > m.ys[len(m.ys)-1] {
		return 0, 0
	}

	i := sort.SearchFloat64s(m.xs, xnm)
	if i > 0 {
		i--
	}
	if i == len(m.xs)-1 {
		i--
	}
	j := sort.SearchFloat64s(m.ys, ynm)
	if j > 0 {
		j--
	}
	if j == len(m.ys)-1 {
		j--
	}

	tx := (xnm - m.xs[i]) / (m.xs[i+1] - m.xs[i])
	ty := (ynm - m.ys[j]) / (m.ys[j+1] - m.ys[j])

	bilerp := func(g [][]float64) float64 {
		v00 := g[i][j]
		v10 := g[i+1][j]
		v01 := g[i][j+1]
		v11 := g[i+1][j+1]
		return v00*(1-tx)*(1-ty) + v10*tx*(1-ty) + v01*(1-tx)*ty + v11*tx*ty
	}
	return bilerp(m.fx), bilerp(m.fy)
}

// Bounds returns the mapped region in nanometers: xmin, xmax, ymin, ymax.
func (m *ForceMap) Bounds() (xmin, xmax, ymin, ymax float64) {
	return m.xs[0], m.xs[len(m.xs)-1], m.ys[0], m.ys[len(m.ys)-1]
}
