/*
Command ccscore is the command-line driver around the consensus package:
score a read against a template, preview the effect of a candidate
mutation, or commit one and print the refreshed log-likelihood.
*/
package main

import (
	"log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("ccscore: %v", err)
	}
}
