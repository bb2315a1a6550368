package sim

import "fmt"

// Matrix is a generation × run trajectory matrix: row g holds generation g+1
// across all replicate runs, column r holds run r's full trajectory.
type Matrix struct {
	generations int
	runs        int
	values      []float64
}

func NewMatrix(generations, runs int) (*Matrix, error) {
	if generations < 1 {
		return nil, fmt.Errorf("generations must be >= 1, got %d", generations)
	}
	if runs < 1 {
		return nil, fmt.Errorf("runs must be >= 1, got %d", runs)
	}
	return &Matrix{
		generations: generations,
		runs:        runs,
		values:      make([]float64, generations*runs),
	}, nil
}

func (m *Matrix) Generations() int {
	return m.generations
}

func (m *Matrix) Runs() int {
	return m.runs
}

func (m *Matrix) At(gen, run int) float64 {
	return m.values[gen*m.runs+run]
}

func (m *Matrix) set(gen, run int, v float64) {
	m.values[gen*m.runs+run] = v
}

// SetColumn stores one run's trajectory. The trajectory length must equal
// the generation count.
func (m *Matrix) SetColumn(run int, trajectory []float64) error {
	if run < 0 || run >= m.runs {
		return fmt.Errorf("run index out of range: %d", run)
	}
	if len(trajectory) != m.generations {
		return fmt.Errorf("trajectory length mismatch: got=%d want=%d", len(trajectory), m.generations)
	}
	for gen, v := range trajectory {
		m.set(gen, run, v)
	}
	return nil
}

// Column returns a copy of one run's trajectory for overlay rendering.
func (m *Matrix) Column(run int) []float64 {
	out := make([]float64, m.generations)
	for gen := range out {
		out[gen] = m.At(gen, run)
	}
	return out
}

// Row returns a copy of one generation's frequencies across all runs.
func (m *Matrix) Row(gen int) []float64 {
	out := make([]float64, m.runs)
	copy(out, m.values[gen*m.runs:(gen+1)*m.runs])
	return out
}

// Rows returns the full matrix as generation-major nested slices.
func (m *Matrix) Rows() [][]float64 {
	out := make([][]float64, m.generations)
	for gen := range out {
		out[gen] = m.Row(gen)
	}
	return out
}

// MatrixFromRows rebuilds a matrix from generation-major nested slices.
func MatrixFromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("matrix rows are required")
	}
	m, err := NewMatrix(len(rows), len(rows[0]))
	if err != nil {
		return nil, err
	}
	for gen, row := range rows {
		if len(row) != m.runs {
			return nil, fmt.Errorf("row %d length mismatch: got=%d want=%d", gen, len(row), m.runs)
		}
		copy(m.values[gen*m.runs:(gen+1)*m.runs], row)
	}
	return m, nil
}

// Equal reports whether two matrices have identical shape and values.
func (m *Matrix) Equal(other *Matrix) bool {
	if other == nil || m.generations != other.generations || m.runs != other.runs {
		return false
	}
	for i := range m.values {
		if m.values[i] != other.values[i] {
			return false
		}
	}
	return true
}
