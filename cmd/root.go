package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "marketarb",
	Short: "Cross-venue binary prediction market arbitrage agent",
	Long: `marketarb matches equivalent binary prediction markets across
Predict, Probable, and Opinion, aggregates their live quotes, and scans
for two-leg arbitrage (YES ask + NO ask < 1.0 minus fees) above a
configured spread threshold.

When a qualifying opportunity clears the daily loss breaker and the
session trade limit, the agent places both legs and records the
resulting position to its configured ledger.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
