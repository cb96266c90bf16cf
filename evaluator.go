/*
Package consensus is the public face of the pair-HMM scoring core: Read and
Evaluator tie together model, template, and pairhmm into the facade a
caller actually uses — build an Evaluator over a template and a read, ask
for LL() or LL(mutation), and optionally commit mutations.
*/
package consensus

import (
	"fmt"
	"math"

	"github.com/MShaffar19/ConsensusCore2/internal/ledger"
	"github.com/MShaffar19/ConsensusCore2/internal/obslog"
	"github.com/MShaffar19/ConsensusCore2/matrix"
	"github.com/MShaffar19/ConsensusCore2/model"
	"github.com/MShaffar19/ConsensusCore2/pairhmm"
	"github.com/MShaffar19/ConsensusCore2/template"
)

// extendBufferColumns is the width the extend buffer is allocated with;
// interior LL(mut) calls fit in it, and the buffer is grown past it on
// demand when the atBegin/atEnd edge cases need up to the full template
// width.
const extendBufferColumns = pairhmm.ExtendBufferColumns

// Read is an immutable mapped read: a base sequence, one pulse width per
// base, the channel SNR used to parameterize the chemistry, and the
// template interval it was mapped against.
type Read struct {
	Seq           string
	PulseWidth    []int
	SNR           model.SNR
	TemplateStart uint32
	TemplateEnd   uint32
}

// ErrInvalidMapping is returned when a Read's template interval is
// malformed (TemplateStart > TemplateEnd, or TemplateEnd beyond the
// template length).
type ErrInvalidMapping struct {
	TemplateStart, TemplateEnd, TemplateLength uint32
}

func (e *ErrInvalidMapping) Error() string {
	return fmt.Sprintf("consensus: mapped read interval [%d,%d) invalid for template length %d",
		e.TemplateStart, e.TemplateEnd, e.TemplateLength)
}

// AlphaBetaMismatch is raised when a freshly filled alpha/beta pair yields
// a non-finite log-likelihood: a zero-mass column, or bands that never
// connect.
type AlphaBetaMismatch struct {
	Reason string
}

func (e *AlphaBetaMismatch) Error() string {
	return fmt.Sprintf("consensus: alpha/beta mismatch: %s", e.Reason)
}

// Evaluator owns a Template, its Recursor, and the alpha/beta/extend
// matrices for exactly one (read, template) pair. It is not safe for
// concurrent use; parallelism is obtained by using disjoint Evaluators.
type Evaluator struct {
	tpl          *template.Template
	mdl          model.Model
	recursor     *pairhmm.Recursor
	read         Read
	encodedRead  []uint8
	scoreDiff    float64
	alpha        *matrix.ScaledMatrix
	beta         *matrix.ScaledMatrix
	extendBuffer *matrix.ScaledMatrix
	ledger       *ledger.Ledger
}

// New builds an Evaluator for the named chemistry over tplString and read,
// eagerly filling alpha and beta. It returns model.ErrChemistryNotFound,
// model.InvalidBase, model.InvalidPulseWidth, ErrInvalidMapping, or
// AlphaBetaMismatch on failure.
func New(modelName, tplString string, read Read, scoreDiff float64) (*Evaluator, error) {
	mdl, err := model.Lookup(modelName, read.SNR)
	if err != nil {
		return nil, err
	}

	tpl, err := template.New(mdl, tplString)
	if err != nil {
		return nil, err
	}

	if read.TemplateStart > read.TemplateEnd || int(read.TemplateEnd) > tpl.Length() {
		return nil, &ErrInvalidMapping{
			TemplateStart: read.TemplateStart, TemplateEnd: read.TemplateEnd, TemplateLength: uint32(tpl.Length()),
		}
	}

	encoded, err := mdl.EncodeRead(read.Seq, read.PulseWidth)
	if err != nil {
		return nil, err
	}

	e := &Evaluator{
		tpl:         tpl,
		mdl:         mdl,
		read:        read,
		encodedRead: encoded,
		scoreDiff:   scoreDiff,
	}
	e.recursor = pairhmm.New(tpl, encoded, mdl, scoreDiff)

	N, L := len(encoded), tpl.Length()
	e.alpha = matrix.New(N+1, L+1)
	e.beta = matrix.New(N+1, L+1)
	e.extendBuffer = matrix.New(N+1, extendBufferColumns)

	e.recursor.FillAlphaBeta(e.alpha, e.beta)
	if ll := e.LL(); math.IsInf(ll, 0) || math.IsNaN(ll) {
		return nil, &AlphaBetaMismatch{Reason: "initial fill produced a non-finite LL()"}
	}

	return e, nil
}

// AttachLedger opts this Evaluator's ApplyMutation/ApplyMutations calls
// into provenance logging. Passing nil detaches it. The core scoring
// behavior is unaffected either way.
func (e *Evaluator) AttachLedger(l *ledger.Ledger) {
	e.ledger = l
}

// LL returns the log-likelihood of the read given the current (committed)
// template.
func (e *Evaluator) LL() float64 {
	return math.Log(e.beta.Get(0, 0)) + e.beta.GetLogProdScales() + e.tpl.UndoCounterWeights(len(e.encodedRead))
}

// LLWithMutation evaluates the log-likelihood of the read against the
// template with mut applied as a virtual edit, without mutating the
// committed template. It dispatches on the position of mut relative to the
// matrix boundaries among four strategies — the Extend/Link incremental
// protocol in the common case, and a full refill in the rare case the
// mutation is too close to both ends at once.
func (e *Evaluator) LLWithMutation(mut template.Mutation) (float64, error) {
	if err := e.tpl.Mutate(mut); err != nil {
		return 0, err
	}
	defer e.tpl.Reset()

	start, end := int(mut.Start), int(mut.End)
	lengthDiff := mut.LengthDiff()
	betaLinkCol := 1 + end
	absoluteLinkCol := 1 + end + lengthDiff

	atBegin := start < 3
	atEnd := end+3 > e.beta.Columns()

	var score float64

	switch {
	case !atBegin && !atEnd:
		extendStartCol := start - 1
		extendLength := end - start + lengthDiff + 3
		if e.extendBuffer.Columns() < extendLength {
			e.extendBuffer.Reset(e.alpha.Rows(), extendLength)
		}
		e.recursor.ExtendAlpha(e.alpha, extendStartCol, e.extendBuffer, extendLength)
		score = e.recursor.LinkAlphaBeta(e.extendBuffer, extendLength, e.beta, betaLinkCol, absoluteLinkCol) +
			e.alpha.GetLogProdScalesRange(0, extendStartCol)

	case !atBegin && atEnd:
		extendStartCol := start - 1
		extendLength := e.tpl.Length() - extendStartCol + 1
		if e.extendBuffer.Columns() < extendLength {
			e.extendBuffer.Reset(e.alpha.Rows(), extendLength)
		}
		e.recursor.ExtendAlpha(e.alpha, extendStartCol, e.extendBuffer, extendLength)
		N := len(e.encodedRead)
		score = math.Log(e.extendBuffer.Get(N, extendLength-1)) +
			e.alpha.GetLogProdScalesRange(0, extendStartCol) +
			e.extendBuffer.GetLogProdScalesRange(0, extendLength)

	case atBegin && !atEnd:
		extendLastCol := betaLinkCol
		extendLength := absoluteLinkCol + 1
		if e.extendBuffer.Columns() < extendLength {
			e.extendBuffer.Reset(e.beta.Rows(), extendLength)
		}
		e.recursor.ExtendBeta(e.beta, extendLastCol, e.extendBuffer, extendLength)
		score = math.Log(e.extendBuffer.Get(0, 0)) +
			e.beta.GetLogProdScalesRange(extendLastCol+1, e.beta.Columns()) +
			e.extendBuffer.GetLogProdScalesRange(0, extendLength)

	default:
		obslog.Warnf("consensus: mutation [%d,%d) falls within 3 columns of both template ends; falling back to a full refill", start, end)
		N, L := len(e.encodedRead), e.tpl.Length()
		alphaPrime := matrix.New(N+1, L+1)
		e.recursor.FillAlpha(matrix.Null(), alphaPrime)
		score = math.Log(alphaPrime.Get(N, L)) + alphaPrime.GetLogProdScales()
	}

	return score + e.tpl.UndoCounterWeights(len(e.encodedRead)), nil
}

// ApplyMutation commits mut to the template and refills alpha and beta.
func (e *Evaluator) ApplyMutation(mut template.Mutation) error {
	if err := e.tpl.ApplyMutation(mut); err != nil {
		return err
	}
	e.recalculate()
	e.recordCommit([]template.Mutation{mut})
	return nil
}

// ApplyMutations commits a batch of mutations (in descending-position
// order, per template.ApplyMutations) and refills alpha and beta once.
func (e *Evaluator) ApplyMutations(muts []template.Mutation) error {
	if err := e.tpl.ApplyMutations(muts); err != nil {
		return err
	}
	e.recalculate()
	e.recordCommit(muts)
	return nil
}

// NormalParameters returns the (mean, variance) of the expected
// log-likelihood over the read's mapped template interval.
func (e *Evaluator) NormalParameters() (mean, variance float64) {
	return e.tpl.NormalParameters(e.read.TemplateStart, e.read.TemplateEnd)
}

// ZScore returns how many standard deviations LL() is from the mean of
// NormalParameters' Gaussian approximation.
func (e *Evaluator) ZScore() float64 {
	mean, variance := e.NormalParameters()
	return (e.LL() - mean) / math.Sqrt(variance)
}

func (e *Evaluator) recalculate() {
	N, L := len(e.encodedRead), e.tpl.Length()
	e.alpha.Reset(N+1, L+1)
	e.beta.Reset(N+1, L+1)
	e.extendBuffer.Reset(N+1, extendBufferColumns)
	e.recursor.FillAlphaBeta(e.alpha, e.beta)
}

func (e *Evaluator) recordCommit(muts []template.Mutation) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.RecordCommit(e.mdl.Name(), len(muts), e.LL()); err != nil {
		obslog.Warnf("consensus: ledger commit record failed: %v", err)
	}
}
