/*
Package pairhmm implements the forward/backward pair-HMM recursion over a
template and an encoded read: filling the full α and β matrices once, and
the Extend/Link primitives that rescore a small virtual edit without
refilling either matrix end to end.

Column j of both matrices is a template *boundary*: "having consumed
template positions [0, j)". TemplatePosition j governs two kinds of move
out of boundary j, both sharing the single context model.Populate already
baked into it (its own base paired with its predecessor's): a self-loop
(BRANCH or STICK) that stays at boundary j while consuming one extra read
base, and an advancing move (MATCH or DELETION) that consumes position j
and lands at boundary j+1.
*/
package pairhmm

import (
	"math"

	"github.com/MShaffar19/ConsensusCore2/matrix"
	"github.com/MShaffar19/ConsensusCore2/model"
	"github.com/MShaffar19/ConsensusCore2/template"
)

// ExtendBufferColumns is the typical width of an extend buffer for the
// interior (¬atBegin ∧ ¬atEnd) mutation-scoring case. The atBegin/atEnd
// edge cases may require a wider buffer, sized by the caller.
const ExtendBufferColumns = 8

// Recursor holds everything the pair-HMM recursion needs: the template
// (including its virtual-mutation overlay, when one is active), the
// encoded read, the model used to score emissions, and the banding
// threshold.
type Recursor struct {
	Tpl       *template.Template
	Read      []uint8
	Model     model.Model
	ScoreDiff float64
}

// New builds a Recursor over tpl and an already-encoded read.
func New(tpl *template.Template, encodedRead []uint8, mdl model.Model, scoreDiff float64) *Recursor {
	return &Recursor{Tpl: tpl, Read: encodedRead, Model: mdl, ScoreDiff: scoreDiff}
}

// FillAlpha computes the forward matrix over the current template and
// read, guided by guide (or matrix.Null() for an unguided fill).
func (r *Recursor) FillAlpha(guide, alpha *matrix.ScaledMatrix) {
	N := len(r.Read)
	L := r.Tpl.Length()

	for j := 0; j <= L; j++ {
		lo, hi := r.forwardCandidateRange(j, alpha, guide, N)
		colvals := make([]float64, N+1)

		hasPrevCol := j >= 1
		var prevP model.TemplatePosition
		if hasPrevCol {
			prevP = r.Tpl.At(j - 1)
		}

		hasSelf := j < L
		var selfP model.TemplatePosition
		if hasSelf {
			selfP = r.Tpl.At(j)
		}

		for i := lo; i < hi; i++ {
			var v float64
			if j == 0 && i == 0 {
				v = 1.0
			}
			if hasPrevCol {
				v += alpha.Get(i, j-1) * prevP.Deletion
				if i >= 1 {
					em := r.Model.EmissionPr(model.MoveMatch, r.Read[i-1], prevP.Prev, prevP.Code)
					v += alpha.Get(i-1, j-1) * prevP.Match * em
				}
			}
			if hasSelf && i >= 1 {
				em := selfP.Branch*r.Model.EmissionPr(model.MoveBranch, r.Read[i-1], selfP.Prev, selfP.Code) +
					selfP.Stick*r.Model.EmissionPr(model.MoveStick, r.Read[i-1], selfP.Prev, selfP.Code)
				v += colvals[i-1] * em
			}
			colvals[i] = v
		}

		band := bandRange(colvals, lo, hi, r.ScoreDiff)
		if guide != nil && !guide.IsNull() {
			band = unionRange(band, guide.UsedRowRange(j), N+1)
		}
		alpha.SetColumn(j, colvals, band)
	}
}

// FillBeta computes the backward matrix over the current template and
// read, guided by guide (or matrix.Null() for an unguided fill).
func (r *Recursor) FillBeta(guide, beta *matrix.ScaledMatrix) {
	N := len(r.Read)
	L := r.Tpl.Length()

	for j := L; j >= 0; j-- {
		lo, hi := r.backwardCandidateRange(j, beta, guide, L, N)
		colvals := make([]float64, N+1)

		hasPos := j < L
		var selfP model.TemplatePosition
		if hasPos {
			selfP = r.Tpl.At(j)
		}

		for i := hi - 1; i >= lo; i-- {
			var v float64
			if j == L && i == N {
				v = 1.0
			}
			if hasPos {
				v += selfP.Deletion * beta.Get(i, j+1)
				if i < N {
					em := r.Model.EmissionPr(model.MoveMatch, r.Read[i], selfP.Prev, selfP.Code)
					v += selfP.Match * em * beta.Get(i+1, j+1)
				}
				if i < N {
					em := selfP.Branch*r.Model.EmissionPr(model.MoveBranch, r.Read[i], selfP.Prev, selfP.Code) +
						selfP.Stick*r.Model.EmissionPr(model.MoveStick, r.Read[i], selfP.Prev, selfP.Code)
					v += colvals[i+1] * em
				}
			}
			colvals[i] = v
		}

		band := bandRange(colvals, lo, hi, r.ScoreDiff)
		if guide != nil && !guide.IsNull() {
			band = unionRange(band, guide.UsedRowRange(j), N+1)
		}
		beta.SetColumn(j, colvals, band)
	}
}

// FillAlphaBeta fills alpha unguided, then beta guided by alpha. The
// caller (the consensus Evaluator) is responsible for checking that the
// resulting log-likelihood is finite; a numerically inconsistent pair
// surfaces as a non-finite LL, not an error returned here.
func (r *Recursor) FillAlphaBeta(alpha, beta *matrix.ScaledMatrix) {
	r.FillAlpha(matrix.Null(), alpha)
	r.FillBeta(alpha, beta)
}

// ExtendAlpha seeds buffer column 0 from alpha's column startCol, then
// forward-extends length-1 further columns using the virtual template,
// filling buffer columns [0, length) with the same candidate-range and
// scoreDiff banding an unguided FillAlpha applies. buffer must already have at least
// length columns and alpha.Rows() rows. startCol must be a boundary
// upstream of any position the active virtual mutation touches, so that
// alpha's real column startCol is valid to reuse unmodified.
func (r *Recursor) ExtendAlpha(alpha *matrix.ScaledMatrix, startCol int, buffer *matrix.ScaledMatrix, length int) {
	N := alpha.Rows() - 1
	buffer.CopyColumnFrom(0, alpha, startCol)

	for k := 1; k < length; k++ {
		j := startCol + k
		prevP := r.Tpl.At(j - 1)

		hasSelf := j < r.Tpl.Length()
		var selfP model.TemplatePosition
		if hasSelf {
			selfP = r.Tpl.At(j)
		}

		prev := buffer.UsedRowRange(k - 1)
		lo, hi := clampCandidate(prev.Lo, prev.Hi+1, N)
		colvals := make([]float64, N+1)
		for i := lo; i < hi; i++ {
			var v float64
			v += buffer.Get(i, k-1) * prevP.Deletion
			if i >= 1 {
				em := r.Model.EmissionPr(model.MoveMatch, r.Read[i-1], prevP.Prev, prevP.Code)
				v += buffer.Get(i-1, k-1) * prevP.Match * em
			}
			if hasSelf && i >= 1 {
				em := selfP.Branch*r.Model.EmissionPr(model.MoveBranch, r.Read[i-1], selfP.Prev, selfP.Code) +
					selfP.Stick*r.Model.EmissionPr(model.MoveStick, r.Read[i-1], selfP.Prev, selfP.Code)
				v += colvals[i-1] * em
			}
			colvals[i] = v
		}
		buffer.SetColumn(k, colvals, bandRange(colvals, lo, hi, r.ScoreDiff))
	}
}

// ExtendBeta seeds buffer column (length-1) from beta's column lastCol,
// then backward-extends across the mutated region at the front of the
// template, filling buffer columns down to 0 using the virtual template.
// buffer must already have at least length columns and beta.Rows() rows.
func (r *Recursor) ExtendBeta(beta *matrix.ScaledMatrix, lastCol int, buffer *matrix.ScaledMatrix, length int) {
	N := beta.Rows() - 1
	buffer.CopyColumnFrom(length-1, beta, lastCol)

	for k := length - 2; k >= 0; k-- {
		j := k
		hasPos := j < r.Tpl.Length()
		var selfP model.TemplatePosition
		if hasPos {
			selfP = r.Tpl.At(j)
		}

		colvals := make([]float64, N+1)
		for i := N; i >= 0; i-- {
			var v float64
			if hasPos {
				v += selfP.Deletion * buffer.Get(i, k+1)
				if i < N {
					em := r.Model.EmissionPr(model.MoveMatch, r.Read[i], selfP.Prev, selfP.Code)
					v += selfP.Match * em * buffer.Get(i+1, k+1)
				}
				if i < N {
					em := selfP.Branch*r.Model.EmissionPr(model.MoveBranch, r.Read[i], selfP.Prev, selfP.Code) +
						selfP.Stick*r.Model.EmissionPr(model.MoveStick, r.Read[i], selfP.Prev, selfP.Code)
					v += colvals[i+1] * em
				}
			}
			colvals[i] = v
		}
		buffer.SetColumn(k, colvals, matrix.RowRange{Lo: 0, Hi: N + 1})
	}
}

// LinkAlphaBeta joins the forward-extended buffer (whose last column,
// extLen-1, represents the virtual template's absoluteCol boundary) with
// beta's column betaLinkCol on the real template. The two are valid to
// combine because beyond the mutated region the virtual and real templates
// coincide, so betaLinkCol and absoluteCol denote the same linear
// read-position constraint. The join is taken across the advancing move
// (MATCH or DELETION) of virtual position absoluteCol-1, from buffer column
// extLen-2 into beta's column, so that self-loops at the link column are
// counted once (by beta) rather than by both sides.
func (r *Recursor) LinkAlphaBeta(extendBuf *matrix.ScaledMatrix, extLen int, beta *matrix.ScaledMatrix, betaLinkCol, absoluteCol int) float64 {
	N := beta.Rows() - 1
	prevP := r.Tpl.At(absoluteCol - 1)
	sum := 0.0
	for i := 0; i <= N; i++ {
		a := extendBuf.Get(i, extLen-2)
		sum += a * prevP.Deletion * beta.Get(i, betaLinkCol)
		if i < N {
			em := r.Model.EmissionPr(model.MoveMatch, r.Read[i], prevP.Prev, prevP.Code)
			sum += a * prevP.Match * em * beta.Get(i+1, betaLinkCol)
		}
	}
	return math.Log(sum) +
		extendBuf.GetLogProdScalesRange(0, extLen-1) +
		beta.GetLogProdScalesRange(betaLinkCol, beta.Columns())
}

func (r *Recursor) forwardCandidateRange(j int, alpha, guide *matrix.ScaledMatrix, N int) (int, int) {
	var lo, hi int
	if j == 0 {
		lo, hi = 0, N+1
	} else {
		prev := alpha.UsedRowRange(j - 1)
		lo, hi = prev.Lo, prev.Hi+1
	}
	if guide != nil && !guide.IsNull() {
		g := guide.UsedRowRange(j)
		lo, hi = expandRange(lo, hi, g)
	}
	return clampCandidate(lo, hi, N)
}

func (r *Recursor) backwardCandidateRange(j int, beta, guide *matrix.ScaledMatrix, L, N int) (int, int) {
	var lo, hi int
	if j == L {
		lo, hi = 0, N+1
	} else {
		next := beta.UsedRowRange(j + 1)
		lo, hi = next.Lo-1, next.Hi+1
	}
	if guide != nil && !guide.IsNull() {
		g := guide.UsedRowRange(j)
		lo, hi = expandRange(lo, hi, g)
	}
	return clampCandidate(lo, hi, N)
}

func expandRange(lo, hi int, g matrix.RowRange) (int, int) {
	if g.Len() == 0 {
		return lo, hi
	}
	if g.Lo < lo {
		lo = g.Lo
	}
	if g.Hi > hi {
		hi = g.Hi
	}
	return lo, hi
}

func clampCandidate(lo, hi, N int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > N+1 {
		hi = N + 1
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// bandRange narrows [lo, hi) to the rows whose value is within scoreDiff
// (in log space) of the column's max. If the column is entirely zero, the
// unnarrowed range is returned unchanged — SetColumn will then record a
// zero-mass column, which the consensus Evaluator detects via a non-finite
// LL.
func bandRange(vals []float64, lo, hi int, scoreDiff float64) matrix.RowRange {
	max := 0.0
	for i := lo; i < hi; i++ {
		if vals[i] > max {
			max = vals[i]
		}
	}
	if max <= 0 {
		return matrix.RowRange{Lo: lo, Hi: hi}
	}
	threshold := max * math.Exp(-scoreDiff)
	newLo, newHi, found := lo, lo, false
	for i := lo; i < hi; i++ {
		if vals[i] >= threshold {
			if !found {
				newLo = i
				found = true
			}
			newHi = i + 1
		}
	}
	if !found {
		return matrix.RowRange{Lo: lo, Hi: hi}
	}
	return matrix.RowRange{Lo: newLo, Hi: newHi}
}

// unionRange widens band to cover g as well, clamped to [0, n), guaranteeing
// the reported range always overlaps the guide matrix's band at the
// symmetric column so α and β stay connected.
func unionRange(band, g matrix.RowRange, n int) matrix.RowRange {
	if g.Len() == 0 {
		return band
	}
	lo, hi := expandRange(band.Lo, band.Hi, g)
	return clampRangeTo(lo, hi, n)
}

func clampRangeTo(lo, hi, n int) matrix.RowRange {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if hi < lo {
		hi = lo
	}
	return matrix.RowRange{Lo: lo, Hi: hi}
}
