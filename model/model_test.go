package model

import (
	"math"
	"testing"
)

func testSNR() SNR { return SNR{8.0, 8.0, 8.0, 8.0} }

func TestLookupUnknownChemistry(t *testing.T) {
	_, err := Lookup("nonexistent-chemistry", testSNR())
	if err == nil {
		t.Fatal("Lookup with unknown name returned nil error")
	}
	if _, ok := err.(*ErrChemistryNotFound); !ok {
		t.Fatalf("Lookup error type = %T, want *ErrChemistryNotFound", err)
	}
}

func TestLookupKnownChemistry(t *testing.T) {
	m, err := Lookup("S/P1-C1.2", testSNR())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if m.Name() != "S/P1-C1.2" {
		t.Fatalf("Name() = %q, want S/P1-C1.2", m.Name())
	}
}

func TestTransitionProbabilitiesSumToOne(t *testing.T) {
	m := newSP1C1(testSNR()).(*sp1c1)
	for ctx := 0; ctx < nContexts; ctx++ {
		sum := 0.0
		for j := 0; j < 4; j++ {
			sum += m.ctxTrans[ctx][j]
		}
		if math.Abs(sum-1.0) > 1e-12 {
			t.Fatalf("context %d transition sum = %v, want 1", ctx, sum)
		}
	}
}

func TestPopulateRoundTrip(t *testing.T) {
	m, _ := Lookup("S/P1-C1.2", testSNR())
	tpl, err := m.Populate("ACGTACGT")
	if err != nil {
		t.Fatalf("Populate: %v", err)
	}
	if len(tpl) != 8 {
		t.Fatalf("len(tpl) = %d, want 8", len(tpl))
	}
	last := tpl[len(tpl)-1]
	if last.Match != 1 || last.Branch != 0 || last.Stick != 0 || last.Deletion != 0 {
		t.Fatalf("last position = %+v, want (1,0,0,0)", last)
	}
}

func TestPopulateEmpty(t *testing.T) {
	m, _ := Lookup("S/P1-C1.2", testSNR())
	tpl, err := m.Populate("")
	if err != nil {
		t.Fatalf("Populate(\"\"): %v", err)
	}
	if len(tpl) != 0 {
		t.Fatalf("len(tpl) = %d, want 0", len(tpl))
	}
}

func TestPopulateInvalidBase(t *testing.T) {
	m, _ := Lookup("S/P1-C1.2", testSNR())
	_, err := m.Populate("ACGN")
	if err == nil {
		t.Fatal("Populate with invalid base returned nil error")
	}
	if _, ok := err.(*InvalidBase); !ok {
		t.Fatalf("error type = %T, want *InvalidBase", err)
	}
}

func TestEncodeReadOutcomes(t *testing.T) {
	m, _ := Lookup("S/P1-C1.2", testSNR())
	codes, err := m.EncodeRead("AAAAAA", []int{1, 2, 3, 1, 1, 1})
	if err != nil {
		t.Fatalf("EncodeRead: %v", err)
	}
	want := []uint8{0, 4, 8, 0, 0, 0}
	for i, w := range want {
		if codes[i] != w {
			t.Fatalf("codes[%d] = %d, want %d", i, codes[i], w)
		}
	}
}

func TestEncodeReadInvalidPulseWidth(t *testing.T) {
	m, _ := Lookup("S/P1-C1.2", testSNR())
	_, err := m.EncodeRead("AA", []int{1, 0})
	if err == nil {
		t.Fatal("EncodeRead with zero pulse width returned nil error")
	}
	if _, ok := err.(*InvalidPulseWidth); !ok {
		t.Fatalf("error type = %T, want *InvalidPulseWidth", err)
	}
}

func TestExpectedEmissionMomentsAreCached(t *testing.T) {
	m, _ := Lookup("S/P1-C1.2", testSNR())
	e1 := m.ExpectedLLForEmission(MoveMatch, BaseA, BaseC, MomentFirst)
	e2 := m.ExpectedLLForEmission(MoveMatch, BaseA, BaseC, MomentSecond)
	if e1 >= 0 {
		t.Fatalf("E[log p] = %v, want negative (log of a probability)", e1)
	}
	if e2 <= 0 {
		t.Fatalf("E[(log p)^2] = %v, want positive", e2)
	}
}
