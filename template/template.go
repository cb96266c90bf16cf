/*
Package template implements Template: the ordered sequence of
model.TemplatePosition that the pair-HMM recursion runs against, together
with the virtual/committed mutation overlay machinery that lets a caller
score a hypothetical edit without ever materializing a second copy of the
whole template.
*/
package template

import (
	"fmt"
	"sort"

	"github.com/MShaffar19/ConsensusCore2/model"
)

// MutationType is one of the three edits a Mutation can describe.
type MutationType int

const (
	Substitution MutationType = iota
	Insertion
	Deletion
)

func (t MutationType) String() string {
	switch t {
	case Substitution:
		return "substitution"
	case Insertion:
		return "insertion"
	case Deletion:
		return "deletion"
	default:
		return "unknown"
	}
}

// Mutation describes a candidate single-base edit to a template. Start and
// End are positions in the template *before* the edit; Base is only
// meaningful for Substitution and Insertion.
type Mutation struct {
	Type  MutationType
	Start uint32
	End   uint32
	Base  model.Base
}

// LengthDiff is the change in template length this mutation would cause.
func (m Mutation) LengthDiff() int {
	switch m.Type {
	case Insertion:
		return 1
	case Deletion:
		return -1
	default:
		return 0
	}
}

// editLen is the number of new template positions this mutation introduces
// in place of [Start, End) — 1 for substitution and insertion, 0 for
// deletion (which introduces nothing, only removes).
func (m Mutation) editLen() int {
	if m.Type == Deletion {
		return 0
	}
	return 1
}

// overlaps reports whether m and other touch any common template position.
func (m Mutation) overlaps(other Mutation) bool {
	return m.Start < other.End && other.Start < m.End
}

// TemplateOverlap is returned by ApplyMutations when the batch contains two
// mutations that touch a common template position.
type TemplateOverlap struct {
	A, B Mutation
}

func (e *TemplateOverlap) Error() string {
	return fmt.Sprintf("template: mutations at [%d,%d) and [%d,%d) overlap",
		e.A.Start, e.A.End, e.B.Start, e.B.End)
}

// ErrVirtualMutationActive is returned by Mutate when a virtual mutation is
// already installed; at most one may be in effect at a time.
var ErrVirtualMutationActive = fmt.Errorf("template: a virtual mutation is already active")

// Template is an ordered sequence of model.TemplatePosition, plus at most
// one pending virtual mutation overlay and support for committing
// mutations permanently.
type Template struct {
	mdl       model.Model
	committed []model.TemplatePosition
	virtual   []model.TemplatePosition
}

// New populates a Template from a base-character string using mdl.
func New(mdl model.Model, tpl string) (*Template, error) {
	positions, err := mdl.Populate(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{mdl: mdl, committed: positions}, nil
}

// Length returns the number of positions in the currently visible template
// (the virtual overlay's length if one is active, else the committed
// length).
func (t *Template) Length() int {
	if t.virtual != nil {
		return len(t.virtual)
	}
	return len(t.committed)
}

// At returns the currently visible TemplatePosition at index i.
func (t *Template) At(i int) model.TemplatePosition {
	if t.virtual != nil {
		return t.virtual[i]
	}
	return t.committed[i]
}

// HasVirtualMutation reports whether a virtual overlay is currently
// installed.
func (t *Template) HasVirtualMutation() bool {
	return t.virtual != nil
}

// Mutate installs mut as a virtual overlay: the visible template gains
// mut.LengthDiff() positions, with [mut.Start, mut.End) conceptually
// replaced per mut.Type. Only the positions whose transition context
// actually changes are recomputed — every position's context is (its own
// predecessor's base, its own base), so an edit touches positions
// [mut.Start, 1+mut.End+mut.LengthDiff()) in the post-edit numbering (plus
// the new last position when the edit reaches the template's end, since
// only the last position is terminal); everything outside that range is
// reused by reference from the committed template. The recompute window is
// padded by one base on each side, so the first recomputed position gets
// its predecessor and the last is not mistaken for the terminal one.
// Reset must be called before the template is used again for
// anything other than reading through the overlay.
func (t *Template) Mutate(mut Mutation) error {
	if t.virtual != nil {
		return ErrVirtualMutationActive
	}
	L := len(t.committed)
	start, end := int(mut.Start), int(mut.End)
	if start > end || end > L {
		return fmt.Errorf("template: mutation [%d,%d) out of range for length %d", start, end, L)
	}

	editLen := mut.editLen()
	diff := mut.LengthDiff()
	newLen := L + diff

	virtualChar := func(i int) byte {
		switch {
		case i < start:
			return t.committed[i].Base
		case i < start+editLen:
			return model.DecodeBase(mut.Base)
		default:
			return t.committed[i-diff].Base
		}
	}

	changedLo := start
	changedHi := 1 + end + diff
	if changedHi > newLen {
		changedHi = newLen
	}
	if changedHi < changedLo {
		changedHi = changedLo
	}

	if changedHi == newLen && newLen > 0 && changedLo > newLen-1 {
		changedLo = newLen - 1
	}

	var recomputed []model.TemplatePosition
	if changedHi > changedLo {
		extStart := changedLo - 1
		if extStart < 0 {
			extStart = 0
		}
		extEnd := changedHi
		if extEnd < newLen {
			extEnd++
		}
		window := make([]byte, extEnd-extStart)
		for k := range window {
			window[k] = virtualChar(extStart + k)
		}
		ext, err := t.mdl.Populate(string(window))
		if err != nil {
			return err
		}
		recomputed = ext[changedLo-extStart : changedHi-extStart]
	}

	positions := make([]model.TemplatePosition, newLen)
	copy(positions[:changedLo], t.committed[:changedLo])
	copy(positions[changedLo:changedHi], recomputed)
	copy(positions[changedHi:], t.committed[changedHi-diff:])

	t.virtual = positions
	return nil
}

// Reset discards the virtual overlay, restoring the committed template.
func (t *Template) Reset() {
	t.virtual = nil
}

// ApplyMutation commits mut permanently: it is equivalent to Mutate
// followed by making the virtual view the new committed template.
func (t *Template) ApplyMutation(mut Mutation) error {
	if err := t.Mutate(mut); err != nil {
		return err
	}
	t.committed = t.virtual
	t.virtual = nil
	return nil
}

// ApplyMutations commits a batch of mutations. Overlapping mutations are
// rejected with TemplateOverlap before anything is committed. Mutations
// are then committed in descending-position order so that an earlier
// (lower-position) commit's coordinates are never invalidated by a later
// one shifting the template underneath it.
func (t *Template) ApplyMutations(muts []Mutation) error {
	for i := 0; i < len(muts); i++ {
		for j := i + 1; j < len(muts); j++ {
			if muts[i].overlaps(muts[j]) {
				return &TemplateOverlap{A: muts[i], B: muts[j]}
			}
		}
	}

	ordered := make([]Mutation, len(muts))
	copy(ordered, muts)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Start > ordered[j].Start
	})

	for _, m := range ordered {
		if err := t.ApplyMutation(m); err != nil {
			return err
		}
	}
	return nil
}

// NormalParameters returns the (mean, variance) of the expected
// log-likelihood over template positions [tstart, tend), treating each
// position's contribution as an independent mixture over its move
// probabilities, using the model's cached per-move emission moments.
func (t *Template) NormalParameters(tstart, tend uint32) (mean, variance float64) {
	positions := t.currentPositions()
	lo, hi := int(tstart), int(tend)
	if lo < 0 {
		lo = 0
	}
	if hi > len(positions) {
		hi = len(positions)
	}

	for i := lo; i < hi; i++ {
		p := positions[i]

		e1 := p.Match*t.mdl.ExpectedLLForEmission(model.MoveMatch, p.Prev, p.Code, model.MomentFirst) +
			p.Branch*t.mdl.ExpectedLLForEmission(model.MoveBranch, p.Prev, p.Code, model.MomentFirst) +
			p.Stick*t.mdl.ExpectedLLForEmission(model.MoveStick, p.Prev, p.Code, model.MomentFirst)
		e2 := p.Match*t.mdl.ExpectedLLForEmission(model.MoveMatch, p.Prev, p.Code, model.MomentSecond) +
			p.Branch*t.mdl.ExpectedLLForEmission(model.MoveBranch, p.Prev, p.Code, model.MomentSecond) +
			p.Stick*t.mdl.ExpectedLLForEmission(model.MoveStick, p.Prev, p.Code, model.MomentSecond)

		mean += e1
		variance += e2 - e1*e1
	}
	return mean, variance
}

// UndoCounterWeights delegates to the model: see model.Model's
// UndoCounterWeights for why this exists.
func (t *Template) UndoCounterWeights(nEmissions int) float64 {
	return t.mdl.UndoCounterWeights(nEmissions)
}

func (t *Template) currentPositions() []model.TemplatePosition {
	if t.virtual != nil {
		return t.virtual
	}
	return t.committed
}
