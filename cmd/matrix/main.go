package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	verbose bool
	envFile string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "matrix",
		Short: "Run a script across a matrix of cloud browsers",
		Long: `matrix expands a terse browser list into fully qualified browser, OS and device
combinations, runs a script in each of them on a cloud browser provider and reports
results and console output per browser.

Quick Start:
  matrix resolve run.yaml          # print the expanded browser matrix
  matrix run run.yaml              # run the script everywhere
  matrix serve --addr :8080        # accept runs over HTTP`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "File to load credentials from")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newRunCmd(g), newResolveCmd(g), newServeCmd(g))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
