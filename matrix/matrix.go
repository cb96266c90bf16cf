/*
Package matrix implements ScaledMatrix, the column-scaled rectangular table
that the pair-HMM forward/backward recursion is built on.

Every column of a ScaledMatrix is stored with its own multiplicative scale
factor (kept as a log) so that the maximum entry in any populated column is
always 1. This keeps the recursion inside double-precision range for
template lengths into the tens of thousands without ever touching the
entries directly — callers finalize a column through SetColumn, which
rescales and records the log factor atomically, instead of poking at cells
one at a time and hoping scaling stays consistent.
*/
package matrix

import "math"

// RowRange is the half-open band of rows [Lo, Hi) that may hold a non-zero
// entry in some column. Rows outside a column's RowRange are guaranteed 0.
type RowRange struct {
	Lo, Hi int
}

// Len returns Hi - Lo, clamped to 0.
func (r RowRange) Len() int {
	if r.Hi <= r.Lo {
		return 0
	}
	return r.Hi - r.Lo
}

// ScaledMatrix is a rows x cols table of non-negative floats, where each
// column j's logical values are M(i,j) * exp(logScale[j]). Storage is
// column-major and reused across Reset calls rather than reallocated, since
// callers resize the same matrix repeatedly (once per ApplyMutation).
type ScaledMatrix struct {
	cols      [][]float64
	logScale  []float64
	used      []RowRange
	rows, ncl int
}

// New allocates a ScaledMatrix with the given dimensions.
func New(rows, cols int) *ScaledMatrix {
	m := &ScaledMatrix{}
	m.Reset(rows, cols)
	return m
}

// Null returns the distinguished sentinel meaning "no previous matrix" —
// used as the guide argument to FillAlpha/FillBeta when there is nothing to
// band against yet. It is represented as a nil *ScaledMatrix; every method
// below that is meaningful to call on it is nil-receiver safe.
func Null() *ScaledMatrix {
	return nil
}

// IsNull reports whether m is the Null() sentinel.
func (m *ScaledMatrix) IsNull() bool {
	return m == nil
}

// Reset clears the matrix to all-zero with the given dimensions, discarding
// scale factors and used-row ranges. Backing storage is reused when its
// capacity already covers the new dimensions.
func (m *ScaledMatrix) Reset(rows, cols int) {
	if cap(m.cols) >= cols {
		m.cols = m.cols[:cols]
	} else {
		m.cols = make([][]float64, cols)
	}
	for j := range m.cols {
		if cap(m.cols[j]) >= rows {
			m.cols[j] = m.cols[j][:rows]
		} else {
			m.cols[j] = make([]float64, rows)
		}
		for i := range m.cols[j] {
			m.cols[j][i] = 0
		}
	}

	if cap(m.logScale) >= cols {
		m.logScale = m.logScale[:cols]
	} else {
		m.logScale = make([]float64, cols)
	}
	for j := range m.logScale {
		m.logScale[j] = 0
	}

	if cap(m.used) >= cols {
		m.used = m.used[:cols]
	} else {
		m.used = make([]RowRange, cols)
	}
	for j := range m.used {
		m.used[j] = RowRange{}
	}

	m.rows, m.ncl = rows, cols
}

// Rows returns the number of rows.
func (m *ScaledMatrix) Rows() int { return m.rows }

// Columns returns the number of columns.
func (m *ScaledMatrix) Columns() int { return m.ncl }

// Get returns the raw (already column-rescaled) entry at (i, j). This is
// M(i,j), not the logical value — callers that need the logical value must
// add back GetLogScale(j) in log-space themselves.
func (m *ScaledMatrix) Get(i, j int) float64 {
	return m.cols[j][i]
}

// Set writes a single raw entry. It does not touch the column's scale
// factor or used-row range — it exists for callers that build a column
// cell-by-cell before it is ever finalized via SetColumn. Writing through Set after a column has been finalized bypasses
// rescaling and will silently corrupt the logical values; don't.
func (m *ScaledMatrix) Set(i, j int, v float64) {
	m.cols[j][i] = v
}

// SetColumn writes values as column j, restricted to usedRange, then
// rescales the column so its maximum entry is 1, recording the subtracted
// log factor. If the column's maximum is 0, the column is left all-zero and
// its scale factor left at 0 — this is a numerical failure (see the
// AlphaBetaMismatch discussion in the consensus package), not reported here;
// it surfaces once the caller checks whether the final log-likelihood is
// finite.
func (m *ScaledMatrix) SetColumn(j int, values []float64, usedRange RowRange) {
	col := m.cols[j]
	for i := range col {
		col[i] = 0
	}
	lo, hi := clampRange(usedRange, len(col))
	copy(col[lo:hi], values[lo:hi])

	max := 0.0
	for i := lo; i < hi; i++ {
		if col[i] > max {
			max = col[i]
		}
	}
	if max > 0 {
		inv := 1 / max
		for i := lo; i < hi; i++ {
			col[i] *= inv
		}
		m.logScale[j] = math.Log(max)
	} else {
		m.logScale[j] = 0
	}
	m.used[j] = RowRange{lo, hi}
}

// CopyColumnFrom copies column srcCol of src into column j verbatim — raw
// values, log scale factor, and used-row range all carried over unchanged.
// Unlike SetColumn, this does not rescale: it exists for seeding an extend
// buffer from an already-finalized column of α or β, where rescaling again
// from the copied (already unit-max) values would discard the original
// scale factor.
func (m *ScaledMatrix) CopyColumnFrom(j int, src *ScaledMatrix, srcCol int) {
	copy(m.cols[j], src.cols[srcCol])
	m.logScale[j] = src.logScale[srcCol]
	m.used[j] = src.used[srcCol]
}

// SetUsedRowRange narrows column j's recorded used-row range without
// touching its contents — used by the banding step, which computes a
// tighter band than the one SetColumn was given and wants to record it
// without rewriting the column.
func (m *ScaledMatrix) SetUsedRowRange(j int, r RowRange) {
	m.used[j] = r
}

// GetLogScale returns the log of the factor that was divided out of
// column j when it was finalized.
func (m *ScaledMatrix) GetLogScale(j int) float64 {
	return m.logScale[j]
}

// GetLogProdScalesRange returns the sum of log scale factors for columns
// in [a, b).
func (m *ScaledMatrix) GetLogProdScalesRange(a, b int) float64 {
	sum := 0.0
	for j := a; j < b; j++ {
		sum += m.logScale[j]
	}
	return sum
}

// GetLogProdScales returns the sum of log scale factors across every
// column.
func (m *ScaledMatrix) GetLogProdScales() float64 {
	return m.GetLogProdScalesRange(0, m.ncl)
}

// UsedRowRange returns the recorded used-row band for column j.
func (m *ScaledMatrix) UsedRowRange(j int) RowRange {
	return m.used[j]
}

func clampRange(r RowRange, n int) (int, int) {
	lo, hi := r.Lo, r.Hi
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
