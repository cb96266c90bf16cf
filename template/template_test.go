package template

import (
	"testing"

	"github.com/MShaffar19/ConsensusCore2/model"
)

func testModel(t *testing.T) model.Model {
	t.Helper()
	m, err := model.Lookup("S/P1-C1.2", model.SNR{8, 8, 8, 8})
	if err != nil {
		t.Fatalf("model.Lookup: %v", err)
	}
	return m
}

func chars(tpl *Template) string {
	s := make([]byte, tpl.Length())
	for i := range s {
		s[i] = tpl.At(i).Base
	}
	return string(s)
}

func TestNewPopulatesFromString(t *testing.T) {
	tpl, err := New(testModel(t), "ACGTACGT")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tpl.Length() != 8 {
		t.Fatalf("Length() = %d, want 8", tpl.Length())
	}
	if chars(tpl) != "ACGTACGT" {
		t.Fatalf("chars = %q, want ACGTACGT", chars(tpl))
	}
}

func TestMutateSubstitutionThenReset(t *testing.T) {
	mdl := testModel(t)
	tpl, _ := New(mdl, "ACGTACGT")
	original := chars(tpl)

	if err := tpl.Mutate(Mutation{Type: Substitution, Start: 2, End: 3, Base: model.BaseA}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if tpl.Length() != 8 {
		t.Fatalf("Length() after substitution = %d, want 8", tpl.Length())
	}
	if got := chars(tpl); got != "ACATACGT" {
		t.Fatalf("chars after substitution = %q, want ACATACGT", got)
	}

	tpl.Reset()
	if got := chars(tpl); got != original {
		t.Fatalf("chars after Reset = %q, want %q", got, original)
	}
}

func TestMutateInsertion(t *testing.T) {
	mdl := testModel(t)
	tpl, _ := New(mdl, "ACGT")
	if err := tpl.Mutate(Mutation{Type: Insertion, Start: 2, End: 2, Base: model.BaseT}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if tpl.Length() != 5 {
		t.Fatalf("Length() = %d, want 5", tpl.Length())
	}
	if got := chars(tpl); got != "ACTGT" {
		t.Fatalf("chars = %q, want ACTGT", got)
	}
}

func TestMutateDeletion(t *testing.T) {
	mdl := testModel(t)
	tpl, _ := New(mdl, "ACGTACGT")
	if err := tpl.Mutate(Mutation{Type: Deletion, Start: 3, End: 4}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if tpl.Length() != 7 {
		t.Fatalf("Length() = %d, want 7", tpl.Length())
	}
	if got := chars(tpl); got != "ACGACGT" {
		t.Fatalf("chars = %q, want ACGACGT", got)
	}
}

func TestMutateAgreesWithFreshPopulate(t *testing.T) {
	mdl := testModel(t)
	tpl, _ := New(mdl, "ACGTACGTACGT")
	if err := tpl.Mutate(Mutation{Type: Substitution, Start: 5, End: 6, Base: model.BaseG}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	want, err := mdl.Populate("ACGTAGGTACGT")
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if tpl.Length() != len(want) {
		t.Fatalf("Length() = %d, want %d", tpl.Length(), len(want))
	}
	for i := 0; i < len(want); i++ {
		got := tpl.At(i)
		w := want[i]
		if got.Base != w.Base || got.Match != w.Match || got.Branch != w.Branch ||
			got.Stick != w.Stick || got.Deletion != w.Deletion {
			t.Fatalf("position %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestMutateWhileActiveFails(t *testing.T) {
	tpl, _ := New(testModel(t), "ACGT")
	if err := tpl.Mutate(Mutation{Type: Substitution, Start: 0, End: 1, Base: model.BaseC}); err != nil {
		t.Fatalf("first Mutate: %v", err)
	}
	if err := tpl.Mutate(Mutation{Type: Substitution, Start: 1, End: 2, Base: model.BaseC}); err != ErrVirtualMutationActive {
		t.Fatalf("second Mutate error = %v, want ErrVirtualMutationActive", err)
	}
}

func TestApplyMutationCommits(t *testing.T) {
	tpl, _ := New(testModel(t), "ACGT")
	if err := tpl.ApplyMutation(Mutation{Type: Deletion, Start: 0, End: 1}); err != nil {
		t.Fatalf("ApplyMutation: %v", err)
	}
	if tpl.HasVirtualMutation() {
		t.Fatal("HasVirtualMutation() = true after ApplyMutation")
	}
	if got := chars(tpl); got != "CGT" {
		t.Fatalf("chars = %q, want CGT", got)
	}
	tpl.Reset()
	if got := chars(tpl); got != "CGT" {
		t.Fatalf("chars after Reset = %q, want CGT (Reset must not undo a commit)", got)
	}
}

func TestApplyMutationsDescendingOrder(t *testing.T) {
	tpl, _ := New(testModel(t), "ACGTACGT")
	muts := []Mutation{
		{Type: Substitution, Start: 1, End: 2, Base: model.BaseT},
		{Type: Substitution, Start: 6, End: 7, Base: model.BaseA},
	}
	if err := tpl.ApplyMutations(muts); err != nil {
		t.Fatalf("ApplyMutations: %v", err)
	}
	if got := chars(tpl); got != "ATGTACAT" {
		t.Fatalf("chars = %q, want ATGTACAT", got)
	}
}

func TestApplyMutationsOverlapRejected(t *testing.T) {
	tpl, _ := New(testModel(t), "ACGTACGT")
	muts := []Mutation{
		{Type: Substitution, Start: 2, End: 3, Base: model.BaseA},
		{Type: Deletion, Start: 2, End: 3},
	}
	err := tpl.ApplyMutations(muts)
	if err == nil {
		t.Fatal("ApplyMutations with overlapping mutations returned nil error")
	}
	if _, ok := err.(*TemplateOverlap); !ok {
		t.Fatalf("error type = %T, want *TemplateOverlap", err)
	}
	if got := chars(tpl); got != "ACGTACGT" {
		t.Fatalf("chars after rejected batch = %q, want unchanged ACGTACGT", got)
	}
}

func TestNormalParametersFiniteAndVarianceNonNegative(t *testing.T) {
	mdl := testModel(t)
	tpl, _ := New(mdl, "ACGTACGTACGT")
	mean, variance := tpl.NormalParameters(0, uint32(tpl.Length()))
	if variance < 0 {
		t.Fatalf("variance = %v, want >= 0", variance)
	}
	if mean >= 0 {
		t.Fatalf("mean = %v, want negative (sum of log probabilities)", mean)
	}
}

func TestNormalParametersEmptyRangeIsZero(t *testing.T) {
	tpl, _ := New(testModel(t), "ACGT")
	mean, variance := tpl.NormalParameters(2, 2)
	if mean != 0 || variance != 0 {
		t.Fatalf("NormalParameters(2,2) = (%v, %v), want (0, 0)", mean, variance)
	}
}
