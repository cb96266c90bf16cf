package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MShaffar19/ConsensusCore2/internal/ledger"
)

func runApply(cmd *cobra.Command, _ []string) error {
	ev, err := buildEvaluator()
	if err != nil {
		return fmt.Errorf("ccscore apply: %w", err)
	}

	spec, err := parseMutation()
	if err != nil {
		return fmt.Errorf("ccscore apply: %w", err)
	}
	mut, err := toTemplateMutation(spec)
	if err != nil {
		return fmt.Errorf("ccscore apply: %w", err)
	}

	if ledgerPath != "" {
		l, err := ledger.Open(ledgerPath)
		if err != nil {
			return fmt.Errorf("ccscore apply: %w", err)
		}
		defer l.Close()
		ev.AttachLedger(l)
	}

	if err := ev.ApplyMutation(mut); err != nil {
		return fmt.Errorf("ccscore apply: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "LL=%.6f\n", ev.LL())
	return nil
}
