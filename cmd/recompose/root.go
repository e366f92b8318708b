package main

import (
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	Version   = "v0.1.0-dev"
	BuildTime = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recompose",
		Short: "Replay reconciliation scenarios",
		Long: `recompose drives a small board application through the reconciliation
engine. Scenarios are YAML files that queue state writes; every tick prints
the resulting tree, the side effects that ran and the work the tick did.

Settings are read from recompose.yaml in --dir or the nearest parent.`,
		SilenceUsage: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("dir", ".", "Directory to search for recompose.yaml")

	root.AddCommand(newVersionCmd(), newValidateCmd(), newTraceCmd())
	return root
}
