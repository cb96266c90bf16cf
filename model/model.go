/*
Package model holds the per-chemistry emission/transition tables that give
the pair-HMM recursion its numerical semantics: context-indexed emission
PMFs and SNR-dependent transition polynomials, plus the process-wide
registry that looks a named chemistry constructor up by string (the same
"tag string dispatches to a constructor, registered once at init" pattern
fragbag uses for its fragment-library Openers).
*/
package model

import (
	"fmt"

	"github.com/MShaffar19/ConsensusCore2/internal/obslog"
)

const (
	nContexts = 16
	nOutcomes = 12
)

// Base is a nucleotide encoded as 0..3 for {A, C, G, T}.
type Base uint8

const (
	BaseA Base = 0
	BaseC Base = 1
	BaseG Base = 2
	BaseT Base = 3
)

// EncodeBase translates an ASCII base character to its 0..3 encoding.
// The second return value is false for any character outside {A,C,G,T}.
func EncodeBase(c byte) (Base, bool) {
	switch c {
	case 'A':
		return BaseA, true
	case 'C':
		return BaseC, true
	case 'G':
		return BaseG, true
	case 'T':
		return BaseT, true
	default:
		return 0, false
	}
}

// DecodeBase translates a 0..3 encoding back to its ASCII base character.
func DecodeBase(b Base) byte {
	return "ACGT"[b]
}

// Context packs an ordered (previous, current) base pair into the 0..15
// index used to look up emission and transition parameters.
func Context(prev, curr Base) uint8 {
	return (uint8(prev) << 2) | uint8(curr)
}

// MoveType distinguishes the three template-consuming transitions that also
// emit a read base. Deletion consumes a template position without emitting
// and so never appears as a MoveType.
type MoveType uint8

const (
	MoveMatch  MoveType = 0
	MoveBranch MoveType = 1
	MoveStick  MoveType = 2
)

// MomentType selects which moment of the per-context log-emission
// distribution ExpectedLLForEmission returns.
type MomentType uint8

const (
	MomentFirst  MomentType = 0
	MomentSecond MomentType = 1
)

// SNR is the per-channel signal-to-noise ratio, one value per base.
type SNR [4]float64

// TemplatePosition holds the base at a template index, the preceding
// base (Prev) that its context was computed from, and the transition
// probabilities (match, branch, stick, deletion) governing transitions out
// of that position. They sum to 1. Prev equals Code for the template's
// first position, which has no predecessor.
type TemplatePosition struct {
	Base                           byte
	Code                           Base
	Prev                           Base
	Match, Branch, Stick, Deletion float64
}

// Model is the narrow capability set a chemistry must provide: populating a
// template with transition probabilities, encoding a read into outcome
// codes, scoring an emission, undoing the recursion's counter-weighting, and
// reporting the cached moments used by NormalParameters. Implementations
// are immutable after construction and safe to share across Evaluators.
type Model interface {
	Name() string
	Populate(tpl string) ([]TemplatePosition, error)
	EncodeRead(seq string, pulseWidths []int) ([]uint8, error)
	EmissionPr(move MoveType, outcome uint8, prev, curr Base) float64
	UndoCounterWeights(nEmissions int) float64
	ExpectedLLForEmission(move MoveType, prev, curr Base, moment MomentType) float64
}

// Constructor builds a Model for a given SNR. Constructors are registered
// once per chemistry name at init time.
type Constructor func(snr SNR) Model

var registry = map[string]Constructor{}

// Register adds a chemistry constructor under name. Intended to be called
// from init() in a file defining a single chemistry; calling it after
// process initialization is not supported (the registry is write-once).
func Register(name string, ctor Constructor) {
	registry[name] = ctor
	obslog.Debugf("model: registered chemistry %q", name)
}

// ErrChemistryNotFound is returned by Lookup when no chemistry is
// registered under the requested name.
type ErrChemistryNotFound struct {
	Name string
}

func (e *ErrChemistryNotFound) Error() string {
	return fmt.Sprintf("model: no chemistry registered under name %q", e.Name)
}

// Lookup constructs the named chemistry's Model for the given SNR.
func Lookup(name string, snr SNR) (Model, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, &ErrChemistryNotFound{Name: name}
	}
	return ctor(snr), nil
}

// InvalidBase is returned when a template or read character falls outside
// {A, C, G, T}.
type InvalidBase struct {
	Char byte
}

func (e *InvalidBase) Error() string {
	return fmt.Sprintf("model: invalid base character %q", e.Char)
}

// InvalidPulseWidth is returned when a read's pulse width is less than 1.
type InvalidPulseWidth struct {
	Index int
	Value int
}

func (e *InvalidPulseWidth) Error() string {
	return fmt.Sprintf("model: invalid pulse width %d at read position %d", e.Value, e.Index)
}

// ReadEncodingError is returned when an encoded outcome falls outside the
// valid 0..nOutcomes-1 range, which should be unreachable for well-formed
// pulse widths and bases but is checked defensively at the encoding
// boundary.
type ReadEncodingError struct {
	Index int
	Code  uint8
}

func (e *ReadEncodingError) Error() string {
	return fmt.Sprintf("model: read position %d encoded to out-of-range outcome %d", e.Index, e.Code)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
