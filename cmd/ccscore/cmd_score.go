package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runScore(cmd *cobra.Command, _ []string) error {
	ev, err := buildEvaluator()
	if err != nil {
		return fmt.Errorf("ccscore score: %w", err)
	}

	ll := ev.LL()
	z := ev.ZScore()
	fmt.Fprintf(cmd.OutOrStdout(), "LL=%.6f ZScore=%.6f\n", ll, z)
	return nil
}
