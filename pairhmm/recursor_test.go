package pairhmm

import (
	"math"
	"testing"

	"github.com/MShaffar19/ConsensusCore2/matrix"
	"github.com/MShaffar19/ConsensusCore2/model"
	"github.com/MShaffar19/ConsensusCore2/template"
)

func newRecursor(t *testing.T, tplSeq, readSeq string, pulseWidths []int) (*Recursor, *template.Template) {
	t.Helper()
	mdl, err := model.Lookup("S/P1-C1.2", model.SNR{8, 8, 8, 8})
	if err != nil {
		t.Fatalf("model.Lookup: %v", err)
	}
	tpl, err := template.New(mdl, tplSeq)
	if err != nil {
		t.Fatalf("template.New: %v", err)
	}
	encoded, err := mdl.EncodeRead(readSeq, pulseWidths)
	if err != nil {
		t.Fatalf("EncodeRead: %v", err)
	}
	return New(tpl, encoded, mdl, 12.5), tpl
}

func ones(n int) []int {
	pw := make([]int, n)
	for i := range pw {
		pw[i] = 1
	}
	return pw
}

func TestFillAlphaBetaProducesFiniteMatchingLL(t *testing.T) {
	r, tpl := newRecursor(t, "ACGT", "ACGT", ones(4))
	N, L := len(r.Read), tpl.Length()
	alpha := matrix.New(N+1, L+1)
	beta := matrix.New(N+1, L+1)

	r.FillAlphaBeta(alpha, beta)

	ll := math.Log(beta.Get(0, 0)) + beta.GetLogProdScales() + tpl.UndoCounterWeights(N)
	if math.IsInf(ll, 0) || math.IsNaN(ll) {
		t.Fatalf("LL = %v, want finite", ll)
	}
}

func TestColumnsAreUnitMaxOrEmpty(t *testing.T) {
	r, tpl := newRecursor(t, "ACGTACGT", "ACGTACGT", ones(8))
	N, L := len(r.Read), tpl.Length()
	alpha := matrix.New(N+1, L+1)
	beta := matrix.New(N+1, L+1)
	r.FillAlphaBeta(alpha, beta)

	for _, m := range []*matrix.ScaledMatrix{alpha, beta} {
		for j := 0; j < m.Columns(); j++ {
			ur := m.UsedRowRange(j)
			max := 0.0
			for i := ur.Lo; i < ur.Hi; i++ {
				v := m.Get(i, j)
				if v < 0 || v > 1+1e-9 {
					t.Fatalf("column %d row %d value %v out of [0,1]", j, i, v)
				}
				if v > max {
					max = v
				}
			}
			if ur.Len() > 0 && math.Abs(max-1) > 1e-9 {
				t.Fatalf("column %d max = %v, want 1", j, max)
			}
		}
	}
}

func TestExtendAlphaAgreesWithFreshFill(t *testing.T) {
	r, tpl := newRecursor(t, "ACGTACGTACGT", "ACGTACGTACGT", ones(12))
	N, L := len(r.Read), tpl.Length()
	alpha := matrix.New(N+1, L+1)
	beta := matrix.New(N+1, L+1)
	r.FillAlphaBeta(alpha, beta)

	if err := tpl.Mutate(template.Mutation{Type: template.Substitution, Start: 5, End: 6, Base: model.BaseT}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	defer tpl.Reset()

	startCol := 4
	const extendLength = 4 // end - start + lengthDiff + 3 = 6 - 5 + 0 + 3
	buffer := matrix.New(N+1, extendLength)
	r.ExtendAlpha(alpha, startCol, buffer, extendLength)

	freshAlpha := matrix.New(N+1, tpl.Length()+1)
	r.FillAlpha(matrix.Null(), freshAlpha)

	lastCol := startCol + extendLength - 1
	for i := 0; i <= N; i++ {
		got := math.Log(buffer.Get(i, extendLength-1)) + buffer.GetLogProdScalesRange(0, extendLength) +
			alpha.GetLogProdScalesRange(0, startCol)
		want := math.Log(freshAlpha.Get(i, lastCol)) + freshAlpha.GetLogProdScalesRange(0, lastCol+1)
		if math.IsInf(got, 0) && math.IsInf(want, 0) {
			continue
		}
		if math.Abs(got-want) > 1e-6 {
			t.Fatalf("row %d: extend log value %v, want %v", i, got, want)
		}
	}
}

func TestExtendBetaAgreesWithFreshFill(t *testing.T) {
	r, tpl := newRecursor(t, "ACGTACGTACGTACGT", "ACGTACGTACGTACGT", ones(16))
	N, L := len(r.Read), tpl.Length()
	alpha := matrix.New(N+1, L+1)
	beta := matrix.New(N+1, L+1)
	r.FillAlphaBeta(alpha, beta)

	if err := tpl.Mutate(template.Mutation{Type: template.Substitution, Start: 1, End: 2, Base: model.BaseG}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	defer tpl.Reset()

	const lastCol = 3 // betaLinkCol = 1 + end = 1 + 2
	const length = 4  // absoluteLinkCol + 1 = 1 + end + lengthDiff + 1 = 1 + 2 + 0 + 1
	buffer := matrix.New(N+1, length)
	r.ExtendBeta(beta, lastCol, buffer, length)

	freshBeta := matrix.New(N+1, tpl.Length()+1)
	r.FillBeta(matrix.Null(), freshBeta)

	for i := 0; i <= N; i++ {
		got := math.Log(buffer.Get(i, 0)) +
			buffer.GetLogProdScalesRange(0, length) +
			beta.GetLogProdScalesRange(lastCol+1, beta.Columns())
		want := math.Log(freshBeta.Get(i, 0)) + freshBeta.GetLogProdScalesRange(0, freshBeta.Columns())
		if math.IsInf(got, 0) && math.IsInf(want, 0) {
			continue
		}
		if math.Abs(got-want) > 1e-6 {
			t.Fatalf("row %d: extend log value %v, want %v", i, got, want)
		}
	}
}
