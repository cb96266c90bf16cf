package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MShaffar19/ConsensusCore2/template"
)

// toTemplateMutation translates the CLI-layer mutationSpec into a
// template.Mutation, rejecting unrecognized --mut-type values.
func toTemplateMutation(spec mutationSpec) (template.Mutation, error) {
	var typ template.MutationType
	switch spec.Type {
	case "sub":
		typ = template.Substitution
	case "ins":
		typ = template.Insertion
	case "del":
		typ = template.Deletion
	default:
		return template.Mutation{}, fmt.Errorf("--mut-type must be one of sub, ins, del, got %q", spec.Type)
	}
	return template.Mutation{Type: typ, Start: spec.Start, End: spec.End, Base: spec.Base}, nil
}

func runMutate(cmd *cobra.Command, _ []string) error {
	ev, err := buildEvaluator()
	if err != nil {
		return fmt.Errorf("ccscore mutate: %w", err)
	}

	spec, err := parseMutation()
	if err != nil {
		return fmt.Errorf("ccscore mutate: %w", err)
	}
	mut, err := toTemplateMutation(spec)
	if err != nil {
		return fmt.Errorf("ccscore mutate: %w", err)
	}

	llMut, err := ev.LLWithMutation(mut)
	if err != nil {
		return fmt.Errorf("ccscore mutate: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "LL(mut)=%.6f\n", llMut)
	return nil
}
