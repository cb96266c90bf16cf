package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	consensus "github.com/MShaffar19/ConsensusCore2"
	"github.com/MShaffar19/ConsensusCore2/model"
)

// --- Shared flags ---
var (
	modelName  string
	tplSeq     string
	readSeq    string
	snrFlag    string
	pwFlag     string
	scoreDiff  float64
	tplStart   uint32
	tplEnd     uint32
	ledgerPath string

	mutType  string
	mutStart uint32
	mutEnd   uint32
	mutBase  string
)

var rootCmd = &cobra.Command{
	Use:   "ccscore",
	Short: "Score reads against a template using a pair-HMM consensus model",
	Long: `ccscore builds a consensus Evaluator from a named chemistry, a
template sequence, and a mapped read, and exposes its log-likelihood and
mutation-scoring operations from the command line.`,
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Print the log-likelihood and z-score of a read against a template",
	RunE:  runScore,
}

var mutateCmd = &cobra.Command{
	Use:   "mutate",
	Short: "Print the log-likelihood of a read against a template with a candidate mutation applied, without committing it",
	RunE:  runMutate,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Commit a mutation to the template and print the refreshed log-likelihood",
	RunE:  runApply,
}

func init() {
	for _, c := range []*cobra.Command{scoreCmd, mutateCmd, applyCmd} {
		c.Flags().StringVar(&modelName, "model", "S/P1-C1.2", "chemistry name")
		c.Flags().StringVar(&tplSeq, "template", "", "template base sequence (required)")
		c.Flags().StringVar(&readSeq, "read", "", "read base sequence (required)")
		c.Flags().StringVar(&snrFlag, "snr", "", "comma-separated A,C,G,T signal-to-noise ratios (required)")
		c.Flags().StringVar(&pwFlag, "pw", "", "comma-separated per-base pulse widths (default: 1 for every base)")
		c.Flags().Float64Var(&scoreDiff, "score-diff", 12.5, "banding score-diff threshold")
		c.Flags().Uint32Var(&tplStart, "tpl-start", 0, "template interval start the read is mapped against")
		c.Flags().Uint32Var(&tplEnd, "tpl-end", 0, "template interval end the read is mapped against (default: full template)")
		c.MarkFlagRequired("template")
		c.MarkFlagRequired("read")
		c.MarkFlagRequired("snr")
	}

	for _, c := range []*cobra.Command{mutateCmd, applyCmd} {
		c.Flags().StringVar(&mutType, "mut-type", "", "mutation type: sub, ins, or del (required)")
		c.Flags().Uint32Var(&mutStart, "mut-start", 0, "mutation start position (required)")
		c.Flags().Uint32Var(&mutEnd, "mut-end", 0, "mutation end position (required)")
		c.Flags().StringVar(&mutBase, "mut-base", "", "replacement/inserted base, for sub and ins")
		c.MarkFlagRequired("mut-type")
	}

	applyCmd.Flags().StringVar(&ledgerPath, "ledger", "", "SQLite path to record this commit under (optional)")

	rootCmd.AddCommand(scoreCmd, mutateCmd, applyCmd)
}

// parseSNR parses a "a,c,g,t" flag value into a model.SNR.
func parseSNR(s string) (model.SNR, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return model.SNR{}, fmt.Errorf("--snr must have exactly 4 comma-separated values, got %d", len(parts))
	}
	var snr model.SNR
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.SNR{}, fmt.Errorf("--snr value %q: %w", p, err)
		}
		snr[i] = v
	}
	return snr, nil
}

// parsePulseWidths parses a "p1,p2,..." flag value, or defaults to one pulse
// of width 1 per read base when s is empty.
func parsePulseWidths(s string, readLen int) ([]int, error) {
	if s == "" {
		pw := make([]int, readLen)
		for i := range pw {
			pw[i] = 1
		}
		return pw, nil
	}
	parts := strings.Split(s, ",")
	pw := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("--pw value %q: %w", p, err)
		}
		pw[i] = v
	}
	return pw, nil
}

// buildEvaluator constructs a consensus.Evaluator from the shared flags.
func buildEvaluator() (*consensus.Evaluator, error) {
	snr, err := parseSNR(snrFlag)
	if err != nil {
		return nil, err
	}
	pw, err := parsePulseWidths(pwFlag, len(readSeq))
	if err != nil {
		return nil, err
	}

	end := tplEnd
	if end == 0 {
		end = uint32(len(tplSeq))
	}

	read := consensus.Read{
		Seq:           readSeq,
		PulseWidth:    pw,
		SNR:           snr,
		TemplateStart: tplStart,
		TemplateEnd:   end,
	}
	return consensus.New(modelName, tplSeq, read, scoreDiff)
}

// parseMutation builds a mutationSpec from the mut-* flags.
func parseMutation() (mutType2 mutationSpec, err error) {
	var base model.Base
	if mutBase != "" {
		b, ok := model.EncodeBase(mutBase[0])
		if !ok {
			return mutationSpec{}, &model.InvalidBase{Char: mutBase[0]}
		}
		base = b
	}
	return mutationSpec{Type: mutType, Start: mutStart, End: mutEnd, Base: base}, nil
}

// mutationSpec is the CLI-layer representation of a mutation before it is
// translated into a template.Mutation, since mutType arrives as a flag
// string rather than a template.MutationType.
type mutationSpec struct {
	Type  string
	Start uint32
	End   uint32
	Base  model.Base
}
