package model

import "math"

// counterWeight is multiplied into every emission probability on the way
// into the recursion, and subtracted back out (in log space) by
// UndoCounterWeights. It is a purely numerical device that keeps
// intermediate matrix values well-conditioned; it does not change ratios of
// likelihoods.
const counterWeight = 20.0

func init() {
	Register("S/P1-C1.2", newSP1C1)
}

// sp1c1 implements Model for the "S/P1-C1.2" chemistry.
type sp1c1 struct {
	snr                SNR
	ctxTrans           [nContexts][4]float64
	cachedExpectations [nContexts][3][2]float64
}

func newSP1C1(snr SNR) Model {
	m := &sp1c1{snr: snr}
	for ctx := 0; ctx < nContexts; ctx++ {
		bp := Base(ctx & 3)
		s1 := clip(snr[bp], snrRangesSP1C1[bp][0], snrRangesSP1C1[bp][1])
		s2, s3 := s1*s1, s1*s1*s1

		sum := 1.0
		m.ctxTrans[ctx][0] = 1.0
		for j := 0; j < 3; j++ {
			c := transSP1C1[ctx][j]
			x := c[0] + s1*c[1] + s2*c[2] + s3*c[3]
			xb := math.Exp(x)
			m.ctxTrans[ctx][j+1] = xb
			sum += xb
		}
		for j := 0; j < 4; j++ {
			m.ctxTrans[ctx][j] /= sum
		}

		for move := 0; move < 3; move++ {
			for moment := 0; moment < 2; moment++ {
				m.cachedExpectations[ctx][move][moment] = expectedLLForEmission(move, ctx, moment)
			}
		}
	}
	return m
}

func expectedLLForEmission(move, ctx, moment int) float64 {
	e := 0.0
	for o := 0; o < nOutcomes; o++ {
		p := emissionSP1C1[move][ctx][o]
		lg := math.Log(p)
		if moment == int(MomentFirst) {
			e += p * lg
		} else {
			e += p * lg * lg
		}
	}
	return e
}

func (m *sp1c1) Name() string { return "S/P1-C1.2" }

// Populate returns the per-position transition probabilities for tpl:
// position k (for k in [0, len(tpl)-1)) holds the context (tpl[k-1], tpl[k])'s
// transitions — tpl[0] is its own predecessor, having none — and the final
// position holds the terminal absorbing state (match=1, branch=stick=
// deletion=0). Every position's Prev field records the predecessor base its
// context was built from, even the terminal one, since a position is read
// as the incoming half of a MATCH transition one past its own index.
func (m *sp1c1) Populate(tpl string) ([]TemplatePosition, error) {
	if len(tpl) == 0 {
		return nil, nil
	}

	codes := make([]Base, len(tpl))
	for i := 0; i < len(tpl); i++ {
		c, ok := EncodeBase(tpl[i])
		if !ok {
			return nil, &InvalidBase{Char: tpl[i]}
		}
		codes[i] = c
	}

	result := make([]TemplatePosition, len(tpl))
	for k := range codes {
		prev := codes[0]
		if k > 0 {
			prev = codes[k-1]
		}
		curr := codes[k]
		pos := TemplatePosition{Base: tpl[k], Code: curr, Prev: prev}
		if k == len(tpl)-1 {
			pos.Match = 1.0
		} else {
			params := m.ctxTrans[Context(prev, curr)]
			pos.Match, pos.Branch, pos.Stick, pos.Deletion = params[0], params[1], params[2], params[3]
		}
		result[k] = pos
	}

	return result, nil
}

// EncodeRead packs each read base into an outcome code
// (min(pw-1,2)<<2)|base in [0, 12).
func (m *sp1c1) EncodeRead(seq string, pulseWidths []int) ([]uint8, error) {
	result := make([]uint8, len(seq))
	for i := 0; i < len(seq); i++ {
		pw := pulseWidths[i]
		if pw < 1 {
			return nil, &InvalidPulseWidth{Index: i, Value: pw}
		}
		base, ok := EncodeBase(seq[i])
		if !ok {
			return nil, &InvalidBase{Char: seq[i]}
		}
		clippedPW := pw - 1
		if clippedPW > 2 {
			clippedPW = 2
		}
		em := uint8(clippedPW)<<2 | uint8(base)
		if em >= nOutcomes {
			return nil, &ReadEncodingError{Index: i, Code: em}
		}
		result[i] = em
	}
	return result, nil
}

// EmissionPr returns the counter-weighted probability of outcome under
// move in context (prev, curr). Deletions never call this; they carry no
// emission.
func (m *sp1c1) EmissionPr(move MoveType, outcome uint8, prev, curr Base) float64 {
	ctx := Context(prev, curr)
	return emissionSP1C1[move][ctx][outcome] * counterWeight
}

func (m *sp1c1) UndoCounterWeights(nEmissions int) float64 {
	return -math.Log(counterWeight) * float64(nEmissions)
}

func (m *sp1c1) ExpectedLLForEmission(move MoveType, prev, curr Base, moment MomentType) float64 {
	ctx := Context(prev, curr)
	return m.cachedExpectations[ctx][move][moment]
}
