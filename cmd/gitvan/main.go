package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variable set by GoReleaser.
var version = "dev"

var outWriter io.Writer = os.Stderr

var configPath string

var rootCmd = &cobra.Command{
	Use:     "gitvan",
	Short:   "Knowledge-Hook Orchestrator: Git-native, graph-driven automation",
	Version: version,
	Long: `gitvan evaluates RDF/SPARQL predicates against Git and timer events and
runs typed workflow pipelines when they fire, writing a receipt to Git
notes for every evaluation (signed when a signing key is configured).

Common Tasks:
  gitvan validate                 # check every configured hook and pipeline loads
  gitvan list hooks               # show discovered hooks and their triggers
  gitvan evaluate my-hook         # evaluate one hook outside the scheduler
  gitvan run my-pipeline          # execute a pipeline directly
  gitvan stats                    # summarize the loaded graph and hook set
  gitvan verify-receipt <commit>  # re-check a receipt's signature and steps

For detailed help on any command, use:
  gitvan [command] --help`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "inspect", Title: "Inspection Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "execution", Title: "Execution Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "audit", Title: "Audit Commands:"})

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to gitvan.config.yaml (default: ./gitvan.config.yaml)")
	rootCmd.SetOut(os.Stderr)

	validateCmd := newValidateCommand()
	listCmd := newListCommand()
	statsCmd := newStatsCommand()
	evaluateCmd := newEvaluateCommand()
	runCmd := newRunCommand()
	verifyReceiptCmd := newVerifyReceiptCommand()

	validateCmd.GroupID = "inspect"
	listCmd.GroupID = "inspect"
	statsCmd.GroupID = "inspect"
	evaluateCmd.GroupID = "execution"
	runCmd.GroupID = "execution"
	verifyReceiptCmd.GroupID = "audit"

	rootCmd.AddCommand(validateCmd, listCmd, statsCmd, evaluateCmd, runCmd, verifyReceiptCmd)
}

func main() {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(exitCode(err))
	}
}
