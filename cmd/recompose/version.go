package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/go-drift/recompose/pkg/config"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of recompose",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "recompose version %s (built %s)\n", Version, BuildTime)
			fmt.Fprintf(out, "config schema %s\n", semver.MajorMinor(config.DefaultVersion))
			return nil
		},
	}
}
