package handlers

import (
	"fmt"
	"os"

	"cardiobrief/internal/config"
	"cardiobrief/internal/logger"

	"github.com/spf13/cobra"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cardiobrief",
		Short: "CardioBrief automates cardiology content triage and generation.",
		Long: `CardioBrief fetches cardiology journal articles, triages them with an
LLM into patient-facing (B2C) and clinician-facing (B2B) buckets, generates
long-form content grounded on vector-store context, analyzes audience
comments, and delivers an HTML digest by email.

Typical weekly run:
  cardiobrief fetch
  cardiobrief triage --min-confidence 5
  cardiobrief generate
  cardiobrief digest --send`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cardiobrief.yaml)")

	rootCmd.AddCommand(NewFetchCmd())
	rootCmd.AddCommand(NewTriageCmd())
	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewDigestCmd())
	rootCmd.AddCommand(NewAnalyzeCmd())
	rootCmd.AddCommand(NewStatusCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Report every missing optional collaborator at once; the relevant
	// stages degrade to no-ops instead of failing per call.
	for _, capability := range cfg.MissingCapabilities() {
		logger.Warn("Running without optional capability", "capability", capability)
	}
}
